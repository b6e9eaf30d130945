// Package streamreg tracks open bidirectional moderator streams so the
// Meeting Lifecycle Coordinator can sever them on end-of-meeting.
package streamreg

import (
	"sync"

	"github.com/google/uuid"
)

// State is a StreamHandle's lifecycle state.
type State string

const (
	StateConnected     State = "connected"
	StateDisconnecting State = "disconnecting"
	StateDisconnected  State = "disconnected"
)

// Transport is the minimal surface a registered stream must expose: a way
// to forcefully cancel it with a reason, surfaced to the client as a
// Cancelled status.
type Transport interface {
	Cancel(reason string)
}

// StreamHandle is one registered stream.
type StreamHandle struct {
	StreamID  string
	SessionID string
	State     State

	transport Transport
}

// Registry is a mutex-guarded bookkeeping table of open streams, keyed by
// session so DisconnectSession can fan out to every stream a session holds
// open (e.g. one per connected client).
type Registry struct {
	mu      sync.Mutex
	streams map[string]*StreamHandle            // streamID -> handle
	bySess  map[string]map[string]*StreamHandle // sessionID -> streamID -> handle
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{
		streams: make(map[string]*StreamHandle),
		bySess:  make(map[string]map[string]*StreamHandle),
	}
}

// Register adds a new connected stream for sessionID and returns its ID.
func (r *Registry) Register(sessionID string, transport Transport) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	streamID := uuid.NewString()
	handle := &StreamHandle{
		StreamID:  streamID,
		SessionID: sessionID,
		State:     StateConnected,
		transport: transport,
	}
	r.streams[streamID] = handle
	if r.bySess[sessionID] == nil {
		r.bySess[sessionID] = make(map[string]*StreamHandle)
	}
	r.bySess[sessionID][streamID] = handle
	return streamID
}

// Unregister removes a stream regardless of its current state. Unknown
// stream IDs are a no-op.
func (r *Registry) Unregister(streamID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregisterLocked(streamID)
}

func (r *Registry) unregisterLocked(streamID string) {
	handle, ok := r.streams[streamID]
	if !ok {
		return
	}
	delete(r.streams, streamID)
	if sessStreams, ok := r.bySess[handle.SessionID]; ok {
		delete(sessStreams, streamID)
		if len(sessStreams) == 0 {
			delete(r.bySess, handle.SessionID)
		}
	}
}

// DisconnectSession transitions every stream registered against sessionID
// through disconnecting -> disconnected, cancelling each underlying
// transport with reason, and returns the count affected.
func (r *Registry) DisconnectSession(sessionID, reason string) int {
	r.mu.Lock()
	handles := make([]*StreamHandle, 0, len(r.bySess[sessionID]))
	for _, h := range r.bySess[sessionID] {
		h.State = StateDisconnecting
		handles = append(handles, h)
	}
	r.mu.Unlock()

	for _, h := range handles {
		h.transport.Cancel(reason)
		r.mu.Lock()
		h.State = StateDisconnected
		r.unregisterLocked(h.StreamID)
		r.mu.Unlock()
	}
	return len(handles)
}

// ActiveFor returns a snapshot of the stream handles currently registered
// against sessionID.
func (r *Registry) ActiveFor(sessionID string) []StreamHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]StreamHandle, 0, len(r.bySess[sessionID]))
	for _, h := range r.bySess[sessionID] {
		out = append(out, *h)
	}
	return out
}
