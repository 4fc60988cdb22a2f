package internal

import "context"

// Configurer reads its configuration from an environment map; keys that
// aren't present leave the current value untouched.
type Configurer interface {
	Configure(envs map[string]string) error
}

type Opener interface {
	Open(ctx context.Context) error
	Closer
}

// Closer releases whatever Open acquired, calling it more than once is safe
type Closer interface {
	Close(ctx context.Context) error
}

type Clearer interface {
	Clear(ctx context.Context) error
}
