package reminder

import (
	"context"
	"errors"
	"fmt"
)

// MaxUpdateAttempts bounds UpdateWithRetry.
const MaxUpdateAttempts = 5

// ErrSkip may be returned by a mutate function to abandon the update
// without an error.
var ErrSkip = errors.New("skip update")

// UpdateWithRetry reads the reminder, applies mutate and writes it back,
// starting over on ErrConflict. mutate is re-run on a fresh copy each time,
// so guard clauses inside it see the latest state.
func UpdateWithRetry(ctx context.Context, store Store, id string, mutate func(r *Reminder) error) (*Reminder, error) {
	var lastErr error
	for range MaxUpdateAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r, err := store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := mutate(r); err != nil {
			if errors.Is(err, ErrSkip) {
				return r, ErrSkip
			}
			return nil, err
		}

		err = store.Update(ctx, r)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("update reminder %s after %d attempts: %w", id, MaxUpdateAttempts, lastErr)
}
