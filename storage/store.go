package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

type Update struct {
	Key   []byte
	Value []byte
}

// Store is a JSON document addressed by gjson paths.
type Store interface {
	Set(ctx context.Context, key []byte, value interface{}) error
	Get(ctx context.Context, key []byte) ([]byte, error)
	Delete(ctx context.Context, key []byte) error

	Restore(values []byte) error
	Backup() ([]byte, error)

	ListenToUpdates() <-chan *Update

	Close() error
}
