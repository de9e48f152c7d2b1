package resilience

import "context"

// WithFallback runs primary; if it returns an error, it runs fallback and
// returns that result instead. Used to drop in a degraded response path
// (e.g. a cached or default value) when a node's primary collaborator call
// fails rather than failing the whole workflow step.
func WithFallback[T any](ctx context.Context, primary func(context.Context) (T, error), fallback func(context.Context, error) (T, error)) (T, error) {
	result, err := primary(ctx)
	if err == nil {
		return result, nil
	}
	return fallback(ctx, err)
}
