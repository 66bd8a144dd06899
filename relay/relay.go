// Package relay is the message surface between the engine and its
// collaborators (popup, dashboard, tooling). One action registry backs
// three transports: in-process Dispatch, an HTTP API (chi) and MCP tools.
//
// The wire protocol is the JSON message envelope the collaborators speak:
//
//	{"action": "getStats"}                  -> {"stats": {...}}
//	{"action": "getRecords"}                -> {"records": [...]}
//	{"action": "logInfo", "message": "..."} -> {"success": true}
//	{"action": "setEnabled", "enabled": b}  -> {"success": true}
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/impulsevault/engine/recorder"
	"github.com/impulsevault/engine/store"
)

// Message is the request envelope. Fields beyond Action are per-action.
type Message struct {
	Action  string `json:"action"`
	Message string `json:"message,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// Handler serves one action.
type Handler func(ctx context.Context, msg Message) (any, error)

// StatsResponse answers getStats.
type StatsResponse struct {
	Stats store.UserStats `json:"stats"`
}

// RecordsResponse answers getRecords.
type RecordsResponse struct {
	Records []store.PurchaseRecord `json:"records"`
}

// AckResponse answers the write-style actions.
type AckResponse struct {
	Success bool `json:"success"`
}

// Relay routes messages to action handlers.
type Relay struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	recorder *recorder.Recorder
	store    store.Store
	logger   *slog.Logger
}

// New creates a Relay with the built-in actions registered.
func New(rec *recorder.Recorder, st store.Store, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Relay{
		handlers: make(map[string]Handler),
		recorder: rec,
		store:    st,
		logger:   logger,
	}
	r.Register("getStats", r.getStats)
	r.Register("getRecords", r.getRecords)
	r.Register("logInfo", r.logInfo)
	r.Register("setEnabled", r.setEnabled)
	return r
}

// Register binds a handler to an action name, replacing any previous one.
func (r *Relay) Register(action string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[action] = h
}

// Dispatch decodes one envelope, routes it and encodes the response.
func (r *Relay) Dispatch(ctx context.Context, payload []byte) ([]byte, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("relay: decode message: %w", err)
	}
	if msg.Action == "" {
		return nil, fmt.Errorf("relay: message has no action")
	}

	r.mu.RLock()
	h, ok := r.handlers[msg.Action]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("relay: unknown action %q", msg.Action)
	}

	resp, err := h(ctx, msg)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("relay: encode response: %w", err)
	}
	return data, nil
}

func (r *Relay) getStats(ctx context.Context, _ Message) (any, error) {
	stats, err := r.recorder.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return StatsResponse{Stats: stats}, nil
}

func (r *Relay) getRecords(ctx context.Context, _ Message) (any, error) {
	records, err := r.recorder.Records(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []store.PurchaseRecord{}
	}
	return RecordsResponse{Records: records}, nil
}

func (r *Relay) logInfo(ctx context.Context, msg Message) (any, error) {
	r.logger.InfoContext(ctx, "relay: page log", "message", msg.Message)
	return AckResponse{Success: true}, nil
}

func (r *Relay) setEnabled(ctx context.Context, msg Message) (any, error) {
	if msg.Enabled == nil {
		return nil, fmt.Errorf("relay: setEnabled needs an enabled field")
	}
	if err := r.store.Set(ctx, store.Record{ExtensionEnabled: msg.Enabled}); err != nil {
		return nil, err
	}
	r.logger.InfoContext(ctx, "relay: kill switch set", "enabled", *msg.Enabled)
	return AckResponse{Success: true}, nil
}
