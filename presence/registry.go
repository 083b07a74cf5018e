// Package presence tracks which participants currently hold live
// connections. The registry is process-local and volatile: it is rebuilt
// empty on restart and is the only writer of status/last-seen.
package presence

import (
	"log/slog"
	"sync"
	"time"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Handle is one addressable live connection. Send pushes a single encoded
// frame and may fail at any time; callers treat a failed send as a
// delivery miss on that handle, never as a fatal error.
type Handle interface {
	ID() string
	Send(frame []byte) error
}

type entry struct {
	tenantID string
	handles  map[string]Handle
	status   string
	lastSeen int64 // unix millis, stamped when the last handle closes
}

// Registry maps participants to their live handles. A participant may hold
// several simultaneous connections (two browser tabs); status is online
// while at least one remains.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	log     *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		log:     log,
	}
}

func (r *Registry) Register(participantID, tenantID string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[participantID]
	if !ok {
		e = &entry{tenantID: tenantID, handles: make(map[string]Handle)}
		r.entries[participantID] = e
	}
	e.tenantID = tenantID
	e.handles[h.ID()] = h
	e.status = StatusOnline

	r.log.Debug("presence register",
		"participant", participantID, "handle", h.ID(), "live", len(e.handles))
}

// Deregister removes one handle. It reports whether the participant went
// offline (that was their last handle) and, if so, the stamped last-seen.
func (r *Registry) Deregister(participantID string, h Handle) (wentOffline bool, lastSeen int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[participantID]
	if !ok {
		return false, 0
	}
	delete(e.handles, h.ID())
	if len(e.handles) > 0 {
		return false, 0
	}
	e.status = StatusOffline
	e.lastSeen = time.Now().UnixMilli()

	r.log.Debug("presence offline", "participant", participantID)
	return true, e.lastSeen
}

func (r *Registry) IsOnline(participantID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[participantID]
	return ok && len(e.handles) > 0
}

// LiveHandles snapshots the participant's current handles. A handle may
// become invalid between snapshot and use; senders treat that as a miss.
func (r *Registry) LiveHandles(participantID string) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[participantID]
	if !ok {
		return nil
	}
	out := make([]Handle, 0, len(e.handles))
	for _, h := range e.handles {
		out = append(out, h)
	}
	return out
}

// TenantHandles snapshots every live handle in a tenant except those of
// the excluded participant. Used for same-tenant presence fanout only.
func (r *Registry) TenantHandles(tenantID, exclude string) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Handle
	for id, e := range r.entries {
		if id == exclude || e.tenantID != tenantID {
			continue
		}
		for _, h := range e.handles {
			out = append(out, h)
		}
	}
	return out
}

// Status returns the participant's presence status and last-seen stamp
// (zero until they have disconnected at least once this process lifetime).
func (r *Registry) Status(participantID string) (status string, lastSeen int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[participantID]
	if !ok || len(e.handles) == 0 {
		if ok {
			return StatusOffline, e.lastSeen
		}
		return StatusOffline, 0
	}
	return StatusOnline, e.lastSeen
}
