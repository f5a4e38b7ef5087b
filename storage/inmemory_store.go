package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type InmemoryStore struct {
	valuesMu sync.RWMutex
	values   []byte

	mu          sync.Mutex
	updateChans []chan *Update

	// stop will be closed when Close() is called
	stop chan struct{}
}

func NewInmemoryStore() *InmemoryStore {
	return &InmemoryStore{
		values:      []byte("{}"),
		stop:        make(chan struct{}),
		updateChans: make([]chan *Update, 0),
	}
}

func (i *InmemoryStore) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.isRunning() {
		return nil
	}

	close(i.stop)

	for _, updateChan := range i.updateChans {
		close(updateChan)
	}

	return nil
}

func (i *InmemoryStore) Set(ctx context.Context, key []byte, value interface{}) error {
	i.valuesMu.Lock()
	values, err := sjson.SetBytes(i.values, string(key), value)
	if err != nil {
		i.valuesMu.Unlock()
		return fmt.Errorf("Failed to set %s: %w", key, err)
	}
	i.values = values
	raw := []byte(gjson.GetBytes(values, string(key)).Raw)
	i.valuesMu.Unlock()

	i.publish(key, raw)

	return nil
}

func (i *InmemoryStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	i.valuesMu.RLock()
	defer i.valuesMu.RUnlock()

	result := gjson.GetBytes(i.values, string(key))
	if !result.Exists() {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}

	return []byte(result.Raw), nil
}

func (i *InmemoryStore) Delete(ctx context.Context, key []byte) error {
	i.valuesMu.Lock()
	values, err := sjson.DeleteBytes(i.values, string(key))
	if err != nil {
		i.valuesMu.Unlock()
		return fmt.Errorf("Failed to delete %s: %w", key, err)
	}
	i.values = values
	i.valuesMu.Unlock()

	i.publish(key, nil)

	return nil
}

func (i *InmemoryStore) ListenToUpdates() <-chan *Update {
	i.mu.Lock()
	defer i.mu.Unlock()

	updateChan := make(chan *Update, 255)
	i.updateChans = append(i.updateChans, updateChan)

	return updateChan
}

func (i *InmemoryStore) Restore(values []byte) error {
	if len(values) == 0 {
		values = []byte("{}")
	}

	if !gjson.ValidBytes(values) {
		return fmt.Errorf("Failed to restore: invalid JSON document")
	}

	i.valuesMu.Lock()
	defer i.valuesMu.Unlock()

	i.values = append([]byte(nil), values...)
	return nil
}

func (i *InmemoryStore) Backup() ([]byte, error) {
	i.valuesMu.RLock()
	defer i.valuesMu.RUnlock()

	if len(i.values) == 0 {
		return []byte("{}"), nil
	}

	return append([]byte(nil), i.values...), nil
}

func (i *InmemoryStore) publish(key, value []byte) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.isRunning() {
		return
	}

	for _, updateChan := range i.updateChans {
		select {
		case updateChan <- &Update{Key: key, Value: value}:
		default:
			// listener buffer full, drop the update
		}
	}
}

// isRunning returns true if Close has not been called
func (i *InmemoryStore) isRunning() bool {
	select {
	case <-i.stop:
		return false

	default:
		return true
	}
}

var _ Store = (*InmemoryStore)(nil)
