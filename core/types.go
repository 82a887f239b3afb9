package core

import "context"

// Action represents the result of a node execution that determines flow control
type Action string

// Common actions
const (
	ActionDefault  Action = "default"
	ActionContinue Action = "continue"
	ActionSuccess  Action = "success"
	ActionFailure  Action = "failure"
	ActionRetry    Action = "retry"
)

// normalize maps the zero action onto ActionDefault.
func normalize(action Action) Action {
	if action == "" {
		return ActionDefault
	}
	return action
}

// Store is an untyped shared store for flows that do not define their own state type.
// It carries no locking: concurrent batch items must write disjoint keys.
type Store map[string]any

// NewStore creates an empty store ready to be passed to a flow.
func NewStore() *Store {
	s := make(Store)
	return &s
}

// Set writes a value under key.
func (s *Store) Set(key string, value any) {
	if *s == nil {
		*s = make(Store)
	}
	(*s)[key] = value
}

// Delete removes key from the store.
func (s *Store) Delete(key string) {
	delete(*s, key)
}

// Get returns the value stored under key when it exists and has type T.
func Get[T any](s *Store, key string) (T, bool) {
	var zero T
	if s == nil || *s == nil {
		return zero, false
	}
	raw, ok := (*s)[key]
	if !ok {
		return zero, false
	}
	value, ok := raw.(T)
	return value, ok
}

// GetOr returns the value stored under key, or def when missing or of another type.
func GetOr[T any](s *Store, key string, def T) T {
	if value, ok := Get[T](s, key); ok {
		return value
	}
	return def
}

// Params are per-run parameters. Batch flows hand each sub-run its own Params
// through the context so items never share parameter state.
type Params map[string]any

// Merge returns a new Params holding p overlaid with other.
func (p Params) Merge(other Params) Params {
	merged := make(Params, len(p)+len(other))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

type paramsKey struct{}

// WithParams returns a context carrying params merged over any params already on ctx.
func WithParams(ctx context.Context, params Params) context.Context {
	return context.WithValue(ctx, paramsKey{}, ParamsFromContext(ctx).Merge(params))
}

// ParamsFromContext returns the params carried by ctx. The result is never nil.
func ParamsFromContext(ctx context.Context) Params {
	if p, ok := ctx.Value(paramsKey{}).(Params); ok {
		return p
	}
	return Params{}
}
