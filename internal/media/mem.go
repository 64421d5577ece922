package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Mem is an in-memory Store for tests.
type Mem struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	next    int

	// FailDelete makes every Delete call fail, for exercising the
	// best-effort delete path.
	FailDelete bool
}

func NewMem() *Mem {
	return &Mem{objects: make(map[string][]byte)}
}

var _ Store = (*Mem)(nil)

func (m *Mem) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	key := fmt.Sprintf("photos/mem-%d", m.next)
	m.objects[key] = data
	return key, nil
}

func (m *Mem) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete {
		return errors.New("object storage unavailable")
	}
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// Deleted returns the keys removed so far.
func (m *Mem) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// Len returns the number of stored objects.
func (m *Mem) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
