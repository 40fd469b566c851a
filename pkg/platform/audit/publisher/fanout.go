package publisher

import (
	"context"
	"errors"

	audit "landregistry/pkg/platform/audit"
)

type fanout []audit.Publisher

// Fanout emits every event to all given publishers. Each sink sees every
// event even when another sink fails.
func Fanout(publishers ...audit.Publisher) audit.Publisher {
	return fanout(publishers)
}

func (f fanout) Emit(ctx context.Context, event audit.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
