package config

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNoValue means the source has nothing set for the key
	ErrNoValue = errors.New("config: no value set")

	// ErrShutdown means the config was used after Shutdown
	ErrShutdown = errors.New("config: shutdown")
)

// Config is a raw, untyped configuration source
type Config interface {
	// Get returns the current raw value
	Get(ctx context.Context) (interface{}, error)

	// Shutdown releases anything the source holds on to
	Shutdown()
}

// Bool is a bool typed Config
type Bool interface {
	Get(ctx context.Context) bool
	GetSafe(ctx context.Context) (bool, error)
	Shutdown()
}

// Duration is a time.Duration typed Config
type Duration interface {
	Get(ctx context.Context) time.Duration
	GetSafe(ctx context.Context) (time.Duration, error)
	Shutdown()
}

// Float64 is a float64 typed Config
type Float64 interface {
	Get(ctx context.Context) float64
	GetSafe(ctx context.Context) (float64, error)
	Shutdown()
}

// Uint64 is a uint64 typed Config
type Uint64 interface {
	Get(ctx context.Context) uint64
	GetSafe(ctx context.Context) (uint64, error)
	Shutdown()
}

// String is a string typed Config
type String interface {
	Get(ctx context.Context) string
	GetSafe(ctx context.Context) (string, error)
	Shutdown()
}
