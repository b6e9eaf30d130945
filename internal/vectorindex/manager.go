// Package vectorindex implements the per-meeting vector index: chunking
// positioned OCR blocks, embedding and storing them under a deterministic
// collection name, and serving hybrid vector+BM25 retrieval.
package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bookglebookgle/ai-core/internal/model"
)

// Manager implements the Vector Index Manager's public contract. A single
// process-wide Manager serializes writes per meeting (to avoid write
// amplification when two ingests race for the same collection) while reads
// remain unlocked.
type Manager struct {
	store    CollectionStore
	embedder EmbeddingClient
	log      *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds a Manager over the given store and embedding client.
func New(store CollectionStore, embedder EmbeddingClient, log *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		embedder: embedder,
		log:      log,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (m *Manager) writeLock(meetingID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[meetingID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[meetingID] = l
	}
	return l
}

// EnsureCollection is idempotent.
func (m *Manager) EnsureCollection(ctx context.Context, meetingID string) (model.MeetingVectorCollection, error) {
	if err := m.store.EnsureCollection(ctx, meetingID); err != nil {
		return model.MeetingVectorCollection{}, err
	}
	return model.MeetingVectorCollection{
		Name:      CollectionName(meetingID),
		MeetingID: meetingID,
	}, nil
}

// UpsertBlocks chunks, embeds, and stores the given blocks under
// meetingID/documentID. Per-chunk embedding failures are logged and
// skipped; the call only fails if zero chunks end up stored.
func (m *Manager) UpsertBlocks(ctx context.Context, meetingID, documentID string, blocks []model.PositionedTextBlock) (int, error) {
	if len(blocks) == 0 {
		return 0, fmt.Errorf("vectorindex.UpsertBlocks: no blocks given")
	}

	lock := m.writeLock(meetingID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.store.EnsureCollection(ctx, meetingID); err != nil {
		return 0, err
	}

	pending := chunkBlocks(documentID, blocks)
	if len(pending) == 0 {
		return 0, fmt.Errorf("vectorindex.UpsertBlocks: no chunkable text in blocks")
	}

	okChunks, vectors := embedChunks(ctx, m.embedder, m.log, pending)
	if len(okChunks) == 0 {
		return 0, fmt.Errorf("vectorindex.UpsertBlocks: all %d chunks failed to embed", len(pending))
	}

	stored := make([]model.VectorChunk, len(okChunks))
	for i, c := range okChunks {
		stored[i] = model.VectorChunk{
			MeetingID:  meetingID,
			DocumentID: c.documentID,
			Content:    c.content,
			PageNumber: c.pageNumber,
			BBox:       c.bbox,
			BlockType:  c.blockType,
			Embedding:  vectors[i],
		}
	}

	if err := m.store.BulkInsert(ctx, stored); err != nil {
		return 0, fmt.Errorf("vectorindex.UpsertBlocks: %w", err)
	}

	m.log.Info("upserted vector chunks", "meeting_id", meetingID, "document_id", documentID, "chunks", len(stored), "dropped", len(pending)-len(stored))
	return len(stored), nil
}

// Query performs hybrid retrieval and returns the top k results for
// meetingID, optionally restricted by filter.
func (m *Manager) Query(ctx context.Context, meetingID, queryText string, k int, filter model.SearchFilter) ([]model.SearchResult, error) {
	return query(ctx, m.store, m.embedder, meetingID, queryText, k, filter)
}

// DropCollection deletes every chunk for meetingID. Idempotent: returns
// true even if the collection was already empty.
func (m *Manager) DropCollection(ctx context.Context, meetingID string) (bool, error) {
	lock := m.writeLock(meetingID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.store.DropCollection(ctx, meetingID); err != nil {
		return false, err
	}
	return true, nil
}

// ListMeetingCollections returns the deterministic name of every meeting
// collection with at least one stored chunk.
func (m *Manager) ListMeetingCollections(ctx context.Context) ([]string, error) {
	return m.store.ListMeetingCollections(ctx)
}

// CollectionInfo reports whether meetingID has a collection and its
// document count.
func (m *Manager) CollectionInfo(ctx context.Context, meetingID string) (model.CollectionInfo, error) {
	return m.store.CollectionInfo(ctx, meetingID)
}
