// Package discussion implements the per-meeting discussion session engine:
// a Redis-backed session store, token-budgeted context assembly, topic
// analysis and summarization, wired together by Engine.
package discussion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bookglebookgle/ai-core/internal/apperr"
	"github.com/bookglebookgle/ai-core/internal/model"
)

const defaultSessionTTL = 24 * time.Hour

func sessionKey(sessionID string) string {
	return "discussion:session:" + sessionID
}

func activeSessionsKey(meetingID string) string {
	return "discussion:active_sessions:" + meetingID
}

func messagesKey(sessionID string) string {
	return "discussion:messages:" + sessionID
}

// SessionStore persists DiscussionSession state across moderator turns.
type SessionStore interface {
	Start(ctx context.Context, session *model.DiscussionSession) error
	// Get loads a session and, as a side effect, refreshes its TTL and
	// LastActivityAt (mirrors the read-triggers-refresh behavior the engine
	// relies on so an idle session doesn't expire mid-read).
	Get(ctx context.Context, sessionID string) (*model.DiscussionSession, error)
	Save(ctx context.Context, session *model.DiscussionSession) error
	End(ctx context.Context, sessionID string) error
	ActiveSessionsFor(ctx context.Context, meetingID string) ([]string, error)
	// AppendMessage adds msg to the session's rolling message window,
	// trimming it to the most recent windowSize entries so the window
	// survives across PostMessage calls instead of resetting every turn.
	AppendMessage(ctx context.Context, sessionID string, msg model.ChatMessage, windowSize int) error
	// RecentMessages returns the session's rolling window, oldest first.
	RecentMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
}

// RedisSessionStore is the default SessionStore, grounded on the Redis key
// conventions: one JSON blob per session under discussion:session:<id> with
// a sliding TTL, and a Set of active session IDs per meeting for fan-out.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewRedisSessionStore builds a store with the given session TTL. A zero
// ttl defaults to 24h.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisSessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisSessionStore{client: client, ttl: ttl, log: log}
}

// Start creates a new session and registers it under its meeting's active set.
func (s *RedisSessionStore) Start(ctx context.Context, session *model.DiscussionSession) error {
	if err := s.putRaw(ctx, session); err != nil {
		return err
	}
	if err := s.client.SAdd(ctx, activeSessionsKey(session.MeetingID), session.SessionID).Err(); err != nil {
		return apperr.Wrap(apperr.Unavailable, fmt.Errorf("register active session: %w", err))
	}
	return nil
}

// Get loads a session and refreshes its activity timestamp/TTL.
func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*model.DiscussionSession, error) {
	session, err := s.getRaw(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.LastActivityAt = now()
	if err := s.putRaw(ctx, session); err != nil {
		s.log.Warn("[discussion-store] failed to refresh activity TTL", "sessionId", sessionID, "err", err)
	}
	return session, nil
}

// getRaw loads a session without touching its TTL, used internally to avoid
// recursing through Get's refresh side effect.
func (s *RedisSessionStore) getRaw(ctx context.Context, sessionID string) (*model.DiscussionSession, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, apperr.New(apperr.NotFound, "discussion session not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, fmt.Errorf("get session %s: %w", sessionID, err))
	}
	var session model.DiscussionSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, apperr.Wrap(apperr.Internal, fmt.Errorf("decode session %s: %w", sessionID, err))
	}
	return &session, nil
}

// Save persists session without changing its TTL semantics beyond the
// sliding window (every write refreshes the key's expiry).
func (s *RedisSessionStore) Save(ctx context.Context, session *model.DiscussionSession) error {
	return s.putRaw(ctx, session)
}

func (s *RedisSessionStore) putRaw(ctx context.Context, session *model.DiscussionSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return apperr.Wrap(apperr.Internal, fmt.Errorf("encode session %s: %w", session.SessionID, err))
	}
	if err := s.client.Set(ctx, sessionKey(session.SessionID), raw, s.ttl).Err(); err != nil {
		return apperr.Wrap(apperr.Unavailable, fmt.Errorf("put session %s: %w", session.SessionID, err))
	}
	return nil
}

// End removes a session and its active-set membership. Idempotent: ending
// an already-absent session is not an error.
func (s *RedisSessionStore) End(ctx context.Context, sessionID string) error {
	session, err := s.getRaw(ctx, sessionID)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return nil
		}
		return err
	}

	if err := s.client.Del(ctx, sessionKey(sessionID), messagesKey(sessionID)).Err(); err != nil {
		return apperr.Wrap(apperr.Unavailable, fmt.Errorf("delete session %s: %w", sessionID, err))
	}
	if err := s.client.SRem(ctx, activeSessionsKey(session.MeetingID), sessionID).Err(); err != nil {
		s.log.Warn("[discussion-store] failed to clear active-session membership", "sessionId", sessionID, "err", err)
	}
	return nil
}

// AppendMessage pushes msg onto the session's rolling window list, trims it
// to the most recent windowSize entries, and refreshes the window's TTL to
// match the session's sliding expiry.
func (s *RedisSessionStore) AppendMessage(ctx context.Context, sessionID string, msg model.ChatMessage, windowSize int) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return apperr.Wrap(apperr.Internal, fmt.Errorf("encode message for session %s: %w", sessionID, err))
	}
	key := messagesKey(sessionID)
	if err := s.client.RPush(ctx, key, raw).Err(); err != nil {
		return apperr.Wrap(apperr.Unavailable, fmt.Errorf("append message for session %s: %w", sessionID, err))
	}
	if windowSize > 0 {
		if err := s.client.LTrim(ctx, key, -int64(windowSize), -1).Err(); err != nil {
			return apperr.Wrap(apperr.Unavailable, fmt.Errorf("trim message window for session %s: %w", sessionID, err))
		}
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		s.log.Warn("[discussion-store] failed to refresh message window TTL", "sessionId", sessionID, "err", err)
	}
	return nil
}

// RecentMessages returns the session's rolling window, oldest first. A
// session with no history yet (or one whose window already expired) returns
// an empty slice, not an error.
func (s *RedisSessionStore) RecentMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	raw, err := s.client.LRange(ctx, messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, fmt.Errorf("list messages for session %s: %w", sessionID, err))
	}
	messages := make([]model.ChatMessage, 0, len(raw))
	for _, r := range raw {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(r), &msg); err != nil {
			return nil, apperr.Wrap(apperr.Internal, fmt.Errorf("decode message for session %s: %w", sessionID, err))
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// ActiveSessionsFor lists session IDs registered against a meeting.
func (s *RedisSessionStore) ActiveSessionsFor(ctx context.Context, meetingID string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, activeSessionsKey(meetingID)).Result()
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, fmt.Errorf("list active sessions for %s: %w", meetingID, err))
	}
	return ids, nil
}

// now is a seam over time.Now for testability; production code never
// overrides it.
var now = time.Now
