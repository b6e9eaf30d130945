package model

import "time"

// MeetingType enumerates the supported meeting activities.
type MeetingType string

const (
	MeetingDiscussion   MeetingType = "discussion"
	MeetingQuiz         MeetingType = "quiz"
	MeetingProofreading MeetingType = "proofreading"
)

// SupportedMeetingTypes is the enumerated set EndMeeting validates against.
var SupportedMeetingTypes = map[MeetingType]bool{
	MeetingDiscussion:   true,
	MeetingQuiz:         true,
	MeetingProofreading: true,
}

// CleanupResult is one service's report from a cleanup fan-out call.
type CleanupResult struct {
	Service      string `json:"service"`
	Success      bool   `json:"success"`
	CleanedCount int    `json:"cleanedCount"`
	Error        string `json:"error,omitempty"`
}

// ScheduledDeleteReceipt records that a deferred DropCollection was queued.
type ScheduledDeleteReceipt struct {
	MeetingID   string    `json:"meetingId"`
	ScheduledAt time.Time `json:"scheduledAt"`
	FireAt      time.Time `json:"fireAt"`
}

// EndMeetingResult is the aggregated outcome of EndMeeting.
type EndMeetingResult struct {
	Success         bool                    `json:"success"`
	MeetingID       string                  `json:"meetingId"`
	MeetingType     MeetingType             `json:"meetingType"`
	CleanupResults  []CleanupResult         `json:"cleanupResults"`
	ScheduledDelete *ScheduledDeleteReceipt `json:"scheduledDelete,omitempty"`
}

// MeetingStatus describes a meeting's liveness for introspection. No
// function in this module builds or returns one; ManualCleanup's guard uses
// Coordinator.IsMeetingActive instead.
type MeetingStatus struct {
	MeetingID            string    `json:"meetingId"`
	IsActive             bool      `json:"isActive"`
	LastActivity         time.Time `json:"lastActivity"`
	ParticipantCount     int       `json:"participantCount"`
	HasVectorCollection  bool      `json:"hasVectorCollection"`
}

// ManualCleanupResult is the outcome of the retryable ManualCleanup op.
type ManualCleanupResult struct {
	Success           bool   `json:"success"`
	MeetingID         string `json:"meetingId"`
	CollectionName    string `json:"collectionName"`
	DocumentsDeleted  int    `json:"documentsDeleted"`
	Error             string `json:"error,omitempty"`
	CleanupDurationMs int64  `json:"cleanupDurationMs"`
}
