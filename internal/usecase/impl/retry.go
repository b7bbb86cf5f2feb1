package impl

import (
	"context"

	domainerrors "lexcourt/internal/domain/errors"
)

// retryTransient calls fn and repeats it exactly once when it fails with a
// transient error. The second failure is returned as is.
func retryTransient[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	result, err := fn()
	if err == nil || !domainerrors.IsTransient(err) {
		return result, err
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, err
	}

	return fn()
}

// retryTransientErr is retryTransient for calls without a result.
func retryTransientErr(ctx context.Context, fn func() error) error {
	_, err := retryTransient(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	})

	return err
}
