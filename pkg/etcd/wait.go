package etcd

import (
	"context"

	"github.com/pkg/errors"
	v3 "go.etcd.io/etcd/client/v3"
)

// IsSet reports whether key currently exists.
func IsSet(ctx context.Context, client *v3.Client, key string) (bool, error) {
	get, err := client.Get(ctx, key, v3.WithCountOnly())
	if err != nil {
		return false, errors.Wrap(err, "error getting key")
	}
	return get.Count > 0, nil
}

// WaitFor blocks until key exists (exists == true) or is absent
// (exists == false), or ctx is done.
func WaitFor(ctx context.Context, client *v3.Client, key string, exists bool) error {
	get, err := client.Get(ctx, key)
	if err != nil {
		return errors.Wrap(err, "error getting key")
	}

	if (len(get.Kvs) > 0) == exists {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watch := client.Watch(ctx, key, v3.WithRev(get.Header.Revision+1))
	for resp := range watch {
		if err := resp.Err(); err != nil {
			return errors.Wrap(err, "error watching key")
		}

		for _, event := range resp.Events {
			if event.Type == v3.EventTypePut && exists {
				return nil
			}
			if event.Type == v3.EventTypeDelete && !exists {
				return nil
			}
		}
	}

	return ctx.Err()
}
