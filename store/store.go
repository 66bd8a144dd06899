// Package store defines the key-value contract the engine persists through,
// plus the two bundled backends (in-memory and SQLite).
//
// The contract is deliberately small: Get(keys) returns a partial record,
// Set(partial) writes only the populated keys. There are no transactions:
// read-modify-write sequencing is the caller's job, and concurrent writers
// from different page contexts can lose updates. That is an accepted
// property of the system, not something a backend may silently fix by
// serializing across contexts.
package store

import (
	"context"
	"time"
)

// Key names one storage slot. The set is closed: external collaborators
// (popup toggle, reset scheduler, dashboard) share these exact keys.
type Key string

const (
	// KeyPurchaseRecords holds the ordered decision list, newest first.
	KeyPurchaseRecords Key = "purchaseRecords"
	// KeyUserStats holds the rolling counters.
	KeyUserStats Key = "userStats"
	// KeyExtensionEnabled holds the interception on/off flag.
	KeyExtensionEnabled Key = "extensionEnabled"
)

// PurchaseRecord is one resolved gate decision. Created once, immutable,
// prepended to the record list. Exactly one of WasPurchased/WasSaved is true.
type PurchaseRecord struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	ProductName  string    `json:"productName"`
	Price        float64   `json:"price"`
	Reason       string    `json:"reason"`
	WasPurchased bool      `json:"wasPurchased"`
	WasSaved     bool      `json:"wasSaved"`
	Website      string    `json:"website"`
}

// UserStats are the rolling counters shown by the popup and dashboard.
// The engine only ever increments them; the reset scheduler zeroes the
// weekly/monthly fields.
type UserStats struct {
	TotalImpulsesStopped   int     `json:"totalImpulsesStopped"`
	TotalMoneySaved        float64 `json:"totalMoneySaved"`
	WeeklyImpulsesStopped  int     `json:"weeklyImpulsesStopped"`
	WeeklyMoneySaved       float64 `json:"weeklyMoneySaved"`
	MonthlyImpulsesStopped int     `json:"monthlyImpulsesStopped"`
	MonthlyMoneySaved      float64 `json:"monthlyMoneySaved"`
}

// Record is a partial view over the store. Nil fields are "not requested" on
// reads and "do not touch" on writes.
type Record struct {
	PurchaseRecords  *[]PurchaseRecord `json:"purchaseRecords,omitempty"`
	UserStats        *UserStats        `json:"userStats,omitempty"`
	ExtensionEnabled *bool             `json:"extensionEnabled,omitempty"`
}

// Store is the key-value contract. Both operations are context-bound; a
// backend may be remote. Get returns only the requested keys; keys never
// written come back nil, which callers must treat per their own defaulting
// rules (the interceptor defaults the enabled flag to true, for example).
type Store interface {
	Get(ctx context.Context, keys ...Key) (Record, error)
	Set(ctx context.Context, partial Record) error
}

// Seed writes defaults for any missing key: empty record list, zeroed
// stats, enabled=true. Present values are left untouched.
func Seed(ctx context.Context, s Store) error {
	cur, err := s.Get(ctx, KeyPurchaseRecords, KeyUserStats, KeyExtensionEnabled)
	if err != nil {
		return err
	}

	var partial Record
	if cur.PurchaseRecords == nil {
		empty := []PurchaseRecord{}
		partial.PurchaseRecords = &empty
	}
	if cur.UserStats == nil {
		partial.UserStats = &UserStats{}
	}
	if cur.ExtensionEnabled == nil {
		enabled := true
		partial.ExtensionEnabled = &enabled
	}

	if partial.PurchaseRecords == nil && partial.UserStats == nil && partial.ExtensionEnabled == nil {
		return nil
	}
	return s.Set(ctx, partial)
}

// Bool is a convenience for building partial records.
func Bool(v bool) *bool { return &v }
