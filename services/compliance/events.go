// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package compliance

import (
	"sync"
	"time"
)

// terminalStatus reports whether a regulation status ends the stream.
func terminalStatus(status string) bool {
	return status == "processed" || status == "error"
}

// eventHub fans processing status events out to per-regulation
// subscribers.
//
// Thread Safety: Safe for concurrent use.
type eventHub struct {
	mu sync.Mutex

	// subscribers maps regulation ID to open subscriber channels.
	subscribers map[string][]chan StatusEvent

	// last holds the most recent event per regulation so a late
	// subscriber immediately learns the current state.
	last map[string]StatusEvent
}

func newEventHub() *eventHub {
	return &eventHub{
		subscribers: make(map[string][]chan StatusEvent),
		last:        make(map[string]StatusEvent),
	}
}

// Publish records a status transition and delivers it to subscribers.
// Slow subscribers are skipped, not blocked on.
func (h *eventHub) Publish(regulationID, status, errMsg string) {
	ev := StatusEvent{
		RegulationID: regulationID,
		Status:       status,
		Error:        errMsg,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.last[regulationID] = ev
	for _, ch := range h.subscribers[regulationID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns a channel of status events for one regulation plus
// an unsubscribe function. The current state, if known, is delivered
// first.
func (h *eventHub) Subscribe(regulationID string) (<-chan StatusEvent, func()) {
	ch := make(chan StatusEvent, 8)

	h.mu.Lock()
	if ev, ok := h.last[regulationID]; ok {
		ch <- ev
	}
	h.subscribers[regulationID] = append(h.subscribers[regulationID], ch)
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[regulationID]
		for i, c := range subs {
			if c == ch {
				h.subscribers[regulationID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(h.subscribers[regulationID]) == 0 {
			delete(h.subscribers, regulationID)
		}
	}
	return ch, unsubscribe
}
