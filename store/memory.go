package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It backs tests and the default (no -db)
// engine runs. Safe for concurrent use; each Get/Set is atomic, which is
// all the contract promises.
type Memory struct {
	mu      sync.Mutex
	records *[]PurchaseRecord
	stats   *UserStats
	enabled *bool
}

// NewMemory returns an empty in-memory store (all keys absent, as on a
// fresh install; call Seed to write defaults).
func NewMemory() *Memory {
	return &Memory{}
}

// Get returns copies of the requested keys. Absent keys come back nil.
func (m *Memory) Get(ctx context.Context, keys ...Key) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var rec Record
	for _, k := range keys {
		switch k {
		case KeyPurchaseRecords:
			if m.records != nil {
				cp := make([]PurchaseRecord, len(*m.records))
				copy(cp, *m.records)
				rec.PurchaseRecords = &cp
			}
		case KeyUserStats:
			if m.stats != nil {
				cp := *m.stats
				rec.UserStats = &cp
			}
		case KeyExtensionEnabled:
			if m.enabled != nil {
				cp := *m.enabled
				rec.ExtensionEnabled = &cp
			}
		}
	}
	return rec, nil
}

// Set stores copies of the populated keys.
func (m *Memory) Set(ctx context.Context, partial Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if partial.PurchaseRecords != nil {
		cp := make([]PurchaseRecord, len(*partial.PurchaseRecords))
		copy(cp, *partial.PurchaseRecords)
		m.records = &cp
	}
	if partial.UserStats != nil {
		cp := *partial.UserStats
		m.stats = &cp
	}
	if partial.ExtensionEnabled != nil {
		cp := *partial.ExtensionEnabled
		m.enabled = &cp
	}
	return nil
}
