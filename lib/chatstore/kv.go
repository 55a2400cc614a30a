// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// KV is a persistent string-keyed byte store.
type KV interface {
	// Get returns the value stored under key. found is false when the
	// key does not exist.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Update atomically replaces the value under key with the result
	// of modify. modify sees the current value (found is false if the
	// key is absent). If modify returns an error nothing is written
	// and Update returns that error.
	Update(ctx context.Context, key string, modify func(current []byte, found bool) ([]byte, error)) error

	// Keys returns every key starting with prefix, in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

var _ KV = (*MemoryKV)(nil)

// MemoryKV is an in-process KV. Values are copied on the way in and
// out so callers cannot alias stored bytes.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, found := m.values[key]
	if !found {
		return nil, false, nil
	}
	return clone(value), true, nil
}

func (m *MemoryKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = clone(value)
	return nil
}

func (m *MemoryKV) Update(_ context.Context, key string, modify func([]byte, bool) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, found := m.values[key]
	next, err := modify(clone(current), found)
	if err != nil {
		return err
	}
	m.values[key] = clone(next)
	return nil
}

func (m *MemoryKV) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func clone(value []byte) []byte {
	if value == nil {
		return nil
	}
	return append([]byte{}, value...)
}
