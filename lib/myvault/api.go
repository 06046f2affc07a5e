package myvault

import (
	"context"
)

type VaultReader[T any] interface {
	Get(c context.Context, uid string) (T, bool, error)
}

type VaultReadWriter[T any] interface {
	Get(c context.Context, uid string) (T, bool, error)
	Put(c context.Context, uid string, value T) error
}
