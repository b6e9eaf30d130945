package model

import (
	"time"
)

// StreamStatus is the lifecycle state of a registered StreamHandle.
type StreamStatus string

const (
	StreamActive        StreamStatus = "active"
	StreamDisconnecting  StreamStatus = "disconnecting"
	StreamDisconnected   StreamStatus = "disconnected"
	StreamError          StreamStatus = "error"
)

// StreamHandle is a registered open bidirectional stream. While Status is
// active the underlying transport is live; transitions are monotonic except
// error, which is terminal-equivalent to disconnected.
type StreamHandle struct {
	StreamID       string
	SessionID      string
	CreatedAt      time.Time
	LastActivityAt time.Time
	Status         StreamStatus
}
