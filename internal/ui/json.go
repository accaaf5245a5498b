package ui

import (
	"context"
	"encoding/json"
	"sync"
)

// JSONRenderer writes each event as one JSON object per line:
//
//	{"time":"2026-01-02T15:04:05Z","event":"new","path":"/abs/a.txt"}
type JSONRenderer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONRenderer creates a JSON lines renderer.
func NewJSONRenderer(cfg Config) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(cfg.Output)}
}

// Start implements Renderer.
func (r *JSONRenderer) Start(context.Context) error { return nil }

// Event implements Renderer.
func (r *JSONRenderer) Event(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(e)
}

// Stop implements Renderer.
func (r *JSONRenderer) Stop() error { return nil }

var _ Renderer = (*JSONRenderer)(nil)
