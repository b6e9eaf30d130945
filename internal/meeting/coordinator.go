// Package meeting implements the end-of-meeting cascade: ending the
// discussion session, fanning out cleanup to the per-activity services,
// scheduling the deferred vector-collection drop, and severing any open
// moderator streams.
package meeting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookglebookgle/ai-core/internal/apperr"
	"github.com/bookglebookgle/ai-core/internal/model"
)

// DiscussionEnder ends a discussion session, satisfied by discussion.Engine.
type DiscussionEnder interface {
	EndDiscussion(ctx context.Context, sessionID string) error
}

// VectorCollectionDropper deletes and inspects a meeting's vector collection,
// satisfied by vectorindex.Manager. Per spec §5, the coordinator is the only
// caller permitted to invoke DropCollection.
type VectorCollectionDropper interface {
	DropCollection(ctx context.Context, meetingID string) (bool, error)
	CollectionInfo(ctx context.Context, meetingID string) (model.CollectionInfo, error)
}

// StreamDisconnector severs open moderator streams for a session, satisfied
// by streamreg.Registry.
type StreamDisconnector interface {
	DisconnectSession(sessionID, reason string) int
}

// meetingCleaner is the optional per-service cleanup hook. A service that
// has nothing to clean up is left nil in Services; the fan-out skips a nil
// hook as a no-op, recording no CleanupResult for it and no error.
type meetingCleaner interface {
	CleanupMeeting(ctx context.Context, meetingID string) (int, error)
}

// Services bundles the optional per-activity cleanup hooks the coordinator
// fans EndMeeting out to. Any field may be nil.
type Services struct {
	Discussion    meetingCleaner
	Quiz          meetingCleaner
	Proofreading  meetingCleaner
}

// Config holds the tunables the coordinator needs from the process config.
type Config struct {
	CleanupEnabled           bool
	CleanupDelaySeconds      int
	CleanupRetryAttempts     int
	CleanupRetryDelaySeconds int
}

// Coordinator runs the Meeting Lifecycle Coordinator's EndMeeting/ManualCleanup
// algorithm.
type Coordinator struct {
	discussion DiscussionEnder
	vectors    VectorCollectionDropper
	streams    StreamDisconnector
	services   Services
	cfg        Config
	log        *slog.Logger

	sleep func(time.Duration)
}

// New builds a Coordinator.
func New(discussion DiscussionEnder, vectors VectorCollectionDropper, streams StreamDisconnector, services Services, cfg Config, log *slog.Logger) *Coordinator {
	return &Coordinator{
		discussion: discussion,
		vectors:    vectors,
		streams:    streams,
		services:   services,
		cfg:        cfg,
		log:        log,
		sleep:      time.Sleep,
	}
}

// EndMeeting runs the end-of-meeting cascade described in spec.md §4.4:
// validate the type, end the discussion session for `discussion` meetings,
// fan out cleanup to every service, sever open streams, and (if enabled)
// schedule a deferred, fire-and-forget vector collection drop.
func (c *Coordinator) EndMeeting(ctx context.Context, meetingID string, meetingType model.MeetingType, extras map[string]string) (model.EndMeetingResult, error) {
	if !model.SupportedMeetingTypes[meetingType] {
		return model.EndMeetingResult{}, apperr.New(apperr.InvalidArgument, fmt.Sprintf("unsupported meeting type: %s", meetingType))
	}

	result := model.EndMeetingResult{
		Success:     true,
		MeetingID:   meetingID,
		MeetingType: meetingType,
	}

	if meetingType == model.MeetingDiscussion {
		sessionID := extras["sessionId"]
		if sessionID == "" {
			return model.EndMeetingResult{}, apperr.New(apperr.InvalidArgument, "discussion meetings require sessionId in extras")
		}
		if err := c.discussion.EndDiscussion(ctx, sessionID); err != nil {
			c.log.Error("[meeting-coordinator] end discussion failed", "meetingId", meetingID, "sessionId", sessionID, "err", err)
			result.Success = false
		}
		if c.streams != nil {
			n := c.streams.DisconnectSession(sessionID, "meeting ended")
			c.log.Info("[meeting-coordinator] disconnected moderator streams", "meetingId", meetingID, "sessionId", sessionID, "count", n)
		}
	}

	result.CleanupResults = c.fanOutCleanup(ctx, meetingID)

	if c.cfg.CleanupEnabled && c.vectors != nil {
		receipt := c.scheduleDrop(meetingID)
		result.ScheduledDelete = &receipt
	}

	c.log.Info("[meeting-coordinator] meeting ended", "meetingId", meetingID, "meetingType", meetingType, "success", result.Success)
	return result, nil
}

func (c *Coordinator) fanOutCleanup(ctx context.Context, meetingID string) []model.CleanupResult {
	services := []struct {
		name    string
		cleaner meetingCleaner
	}{
		{"discussion", c.services.Discussion},
		{"quiz", c.services.Quiz},
		{"proofreading", c.services.Proofreading},
	}

	results := make([]model.CleanupResult, 0, len(services))
	for _, svc := range services {
		if svc.cleaner == nil {
			continue
		}
		count, err := svc.cleaner.CleanupMeeting(ctx, meetingID)
		cr := model.CleanupResult{Service: svc.name, Success: err == nil, CleanedCount: count}
		if err != nil {
			cr.Error = err.Error()
			c.log.Warn("[meeting-coordinator] service cleanup failed", "meetingId", meetingID, "service", svc.name, "err", err)
		}
		results = append(results, cr)
	}
	return results
}

// scheduleDrop fires a goroutine that sleeps cleanupDelaySeconds, then
// retries DropCollection up to cleanupRetryAttempts times. It is
// fire-and-forget: its outcome is only logged, never surfaced to EndMeeting's
// caller.
func (c *Coordinator) scheduleDrop(meetingID string) model.ScheduledDeleteReceipt {
	now := time.Now()
	delay := time.Duration(c.cfg.CleanupDelaySeconds) * time.Second
	receipt := model.ScheduledDeleteReceipt{
		MeetingID:   meetingID,
		ScheduledAt: now,
		FireAt:      now.Add(delay),
	}

	go func() {
		c.sleep(delay)
		ctx := context.Background()
		if err := c.dropWithRetry(ctx, meetingID); err != nil {
			c.log.Error("[meeting-coordinator] scheduled vector drop failed after retries", "meetingId", meetingID, "err", err)
		} else {
			c.log.Info("[meeting-coordinator] scheduled vector drop completed", "meetingId", meetingID)
		}
	}()

	return receipt
}

func (c *Coordinator) dropWithRetry(ctx context.Context, meetingID string) error {
	attempts := c.cfg.CleanupRetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	retryDelay := time.Duration(c.cfg.CleanupRetryDelaySeconds) * time.Second

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		_, err := c.vectors.DropCollection(ctx, meetingID)
		if err == nil {
			return nil
		}
		lastErr = err
		c.log.Warn("[meeting-coordinator] vector drop attempt failed", "meetingId", meetingID, "attempt", attempt, "err", err)
		if attempt < attempts {
			c.sleep(retryDelay)
		}
	}
	return fmt.Errorf("drop collection after %d attempts: %w", attempts, lastErr)
}

// IsMeetingActive reports whether meetingID still has a live vector
// collection. On any lookup error it fails safe to true (active), matching
// the original's "assume active to avoid accidental deletion" guard.
func (c *Coordinator) IsMeetingActive(ctx context.Context, meetingID string) (bool, error) {
	if c.vectors == nil {
		return true, nil
	}
	info, err := c.vectors.CollectionInfo(ctx, meetingID)
	if err != nil {
		c.log.Warn("[meeting-coordinator] collection info lookup failed, assuming active", "meetingId", meetingID, "err", err)
		return true, nil
	}
	return info.Exists, nil
}

// ManualCleanup retries vector collection deletion outside the normal
// EndMeeting cascade, for meetings whose scheduled drop already ran or
// failed. Unless force is set, it refuses to act on a still-active meeting.
func (c *Coordinator) ManualCleanup(ctx context.Context, meetingID string, force bool) (model.ManualCleanupResult, error) {
	start := time.Now()
	if c.vectors == nil {
		return model.ManualCleanupResult{}, apperr.New(apperr.Unavailable, "no vector collection store configured")
	}

	if !force {
		active, err := c.IsMeetingActive(ctx, meetingID)
		if err != nil {
			return model.ManualCleanupResult{}, err
		}
		if active {
			return model.ManualCleanupResult{
				Success:   false,
				MeetingID: meetingID,
				Error:     "meeting is still active; use force=true to override",
			}, nil
		}
	}

	info, err := c.vectors.CollectionInfo(ctx, meetingID)
	if err != nil {
		c.log.Warn("[meeting-coordinator] collection info lookup failed before manual cleanup", "meetingId", meetingID, "err", err)
	}

	if err := c.dropWithRetry(ctx, meetingID); err != nil {
		return model.ManualCleanupResult{
			Success:           false,
			MeetingID:         meetingID,
			CollectionName:    info.Name,
			Error:             err.Error(),
			CleanupDurationMs: time.Since(start).Milliseconds(),
		}, nil
	}

	return model.ManualCleanupResult{
		Success:           true,
		MeetingID:         meetingID,
		CollectionName:    info.Name,
		DocumentsDeleted:  info.DocumentCount,
		CleanupDurationMs: time.Since(start).Milliseconds(),
	}, nil
}
