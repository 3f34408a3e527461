package storage

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
)

/*
Memstore is an in-memory storage provider backed by a map. It is only suitable for tests.
*/

////////////////////////////////////////////////////////////////////////////////

// MemStore is an in-memory store.
type MemStore struct {
	data     map[string][]byte
	versions map[string]uint64
	seq      uint64
	mtx      *sync.RWMutex
}

// Put stores an object in the store.
func (m *MemStore) Put(_ context.Context, id string, data []byte) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.data[id] = bytes.Clone(data)
	m.seq++
	m.versions[id] = m.seq
	return nil
}

// Get retrieves an object from the store.
func (m *MemStore) Get(_ context.Context, id string) (io.ReadCloser, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	data, ok := m.data[id]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Stat describes an object in the store. Each put yields a new version.
func (m *MemStore) Stat(_ context.Context, id string) (ObjectInfo, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	data, ok := m.data[id]
	if !ok {
		return ObjectInfo{}, ErrObjectNotFound
	}
	return ObjectInfo{
		Size:    int64(len(data)),
		Version: strconv.FormatUint(m.versions[id], 10),
	}, nil
}

// List returns the sorted IDs of objects with the given prefix.
func (m *MemStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	ids := []string{}
	for id := range m.data {
		if strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Delete removes an object from the store.
func (m *MemStore) Delete(_ context.Context, id string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	delete(m.data, id)
	delete(m.versions, id)
	return nil
}

func (m *MemStore) String() string {
	return "memory"
}

// NewMemStore returns a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		data:     make(map[string][]byte),
		versions: make(map[string]uint64),
		mtx:      &sync.RWMutex{},
	}
}
