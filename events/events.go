// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package events

import (
	"context"
	"sync"
	"time"
)

// Event types published by the handlers.
const (
	VoteCast      = "vote.cast"
	VotingOpened  = "voting.opened"
	VotingClosed  = "voting.closed"
	VotingNotices = "notifications.voting_opened"
)

// Envelope is the JSON body of every published message.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// Publisher emits domain events. Publishing is best-effort: callers log
// failures and never fail the request that produced the event.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data any) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

func (r *Recorder) Publish(_ context.Context, eventType string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Envelope{Type: eventType, OccurredAt: time.Now(), Data: data})
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Envelope, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the type of each recorded event in publish order.
func (r *Recorder) Types() []string {
	var types []string
	for _, e := range r.Events() {
		types = append(types, e.Type)
	}
	return types
}
