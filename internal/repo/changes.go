package repo

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNoBus is returned by OnChange when the repository was built without a bus.
var ErrNoBus = errors.New("repository has no change bus")

// OnChange calls fn for every write to one of this organization's
// collections, until stop is called or ctx ends. Changes to other
// organizations and to global keys are ignored. fn runs on a single
// goroutine. Changes published under the repository's own origin are
// skipped; any other writer's are delivered, including this process's.
func (r *Repository) OnChange(ctx context.Context, fn func(Name)) (stop func(), err error) {
	if r.bus == nil {
		return nil, ErrNoBus
	}
	ctx, cancel := context.WithCancel(ctx)
	ch, err := r.bus.Subscribe(ctx)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "subscribe")
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for c := range ch {
			if r.origin != "" && c.Origin == r.origin {
				continue
			}
			org, name, ok := SplitKey(c.Key)
			if !ok || org != r.scope.Org {
				continue
			}
			fn(name)
		}
	}()
	return func() {
		cancel()
		<-done
	}, nil
}
