package reclaim

import (
	"context"

	v3 "go.etcd.io/etcd/client/v3"

	"github.com/code-payments/gift-protocol/pkg/etcd"
)

// Gate blocks a sweep until sweeping is allowed. A nil Gate never blocks.
type Gate func(ctx context.Context) error

// NewEtcdPauseGate holds sweeps for as long as the configured pause key
// exists in etcd. Operators pause every replica by writing the key and
// resume by deleting it.
func NewEtcdPauseGate(client *v3.Client, configProvider ConfigProvider) Gate {
	conf := configProvider()
	return func(ctx context.Context) error {
		return etcd.WaitFor(ctx, client, conf.pauseKey.Get(ctx), false)
	}
}
