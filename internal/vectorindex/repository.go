package vectorindex

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/bookglebookgle/ai-core/internal/model"
)

// CollectionStore persists VectorChunks scoped to a meeting's collection and
// answers similarity/full-text queries over it. One meeting's rows never
// interact with another's because every query and write is scoped by
// meetingID; "collections" are a logical partition of a single table, not
// separate Postgres schemas, matching the teacher's single document_chunks
// table with a discriminator column.
type CollectionStore interface {
	EnsureCollection(ctx context.Context, meetingID string) error
	BulkInsert(ctx context.Context, chunks []model.VectorChunk) error
	SimilaritySearch(ctx context.Context, meetingID string, queryVec []float32, topK int, filter model.SearchFilter) ([]model.SearchResult, error)
	FullTextSearch(ctx context.Context, meetingID, query string, topK int, filter model.SearchFilter) ([]model.SearchResult, error)
	DropCollection(ctx context.Context, meetingID string) error
	ListMeetingCollections(ctx context.Context) ([]string, error)
	CollectionInfo(ctx context.Context, meetingID string) (model.CollectionInfo, error)
}

// PostgresCollectionStore is the pgx/pgvector-backed CollectionStore,
// grounded on the teacher's repository.ChunkRepo and repository.BM25Repository.
type PostgresCollectionStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCollectionStore wraps an already-configured pgvector-aware pool.
func NewPostgresCollectionStore(pool *pgxpool.Pool) *PostgresCollectionStore {
	return &PostgresCollectionStore{pool: pool}
}

var _ CollectionStore = (*PostgresCollectionStore)(nil)

// CollectionName returns the deterministic collection name for a meeting.
func CollectionName(meetingID string) string {
	return fmt.Sprintf("bookclub_%s_documents", meetingID)
}

// EnsureCollection is idempotent: the backing table is shared across
// meetings, so there is no per-meeting DDL to run; this only validates the
// meetingID is usable as a partition key.
func (r *PostgresCollectionStore) EnsureCollection(ctx context.Context, meetingID string) error {
	if meetingID == "" {
		return fmt.Errorf("vectorindex.EnsureCollection: meetingID is empty")
	}
	return nil
}

// BulkInsert stores chunks with their embedding vectors using pgx batching,
// matching the teacher's ChunkRepo.BulkInsert shape.
func (r *PostgresCollectionStore) BulkInsert(ctx context.Context, chunks []model.VectorChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	now := time.Now().UTC()

	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		embedding := pgvector.NewVector(c.Embedding)

		batch.Queue(`
			INSERT INTO meeting_vector_chunks
				(id, meeting_id, document_id, content, page_number, bbox_x0, bbox_y0, bbox_x1, bbox_y1, block_type, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			id, c.MeetingID, c.DocumentID, c.Content, c.PageNumber,
			c.BBox.X0, c.BBox.Y0, c.BBox.X1, c.BBox.Y1, string(c.BlockType), embedding, now,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < len(chunks); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("vectorindex.BulkInsert: chunk %d: %w", i, err)
		}
	}
	return nil
}

// SimilaritySearch returns the top-K chunks by cosine similarity within one
// meeting's collection, optionally restricted to a single document.
func (r *PostgresCollectionStore) SimilaritySearch(ctx context.Context, meetingID string, queryVec []float32, topK int, filter model.SearchFilter) ([]model.SearchResult, error) {
	embedding := pgvector.NewVector(queryVec)

	query := `
		SELECT content, document_id, meeting_id, page_number, bbox_x0, bbox_y0, bbox_x1, bbox_y1, block_type,
			1 - (embedding <=> $1::vector) AS similarity
		FROM meeting_vector_chunks
		WHERE meeting_id = $2`
	args := []any{embedding, meetingID}

	if filter.DocumentID != "" {
		query += fmt.Sprintf(" AND document_id = $%d", len(args)+1)
		args = append(args, filter.DocumentID)
	}

	query += fmt.Sprintf(" ORDER BY embedding <=> $1::vector LIMIT $%d", len(args)+1)
	args = append(args, topK)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vectorindex.SimilaritySearch: %w", err)
	}
	defer rows.Close()

	return scanSearchResults(rows)
}

// FullTextSearch ranks chunks by PostgreSQL ts_rank_cd against a
// generated tsvector column, mirroring the teacher's BM25Repository.
func (r *PostgresCollectionStore) FullTextSearch(ctx context.Context, meetingID, query string, topK int, filter model.SearchFilter) ([]model.SearchResult, error) {
	sql := `
		SELECT content, document_id, meeting_id, page_number, bbox_x0, bbox_y0, bbox_x1, bbox_y1, block_type,
			ts_rank_cd(content_tsv, plainto_tsquery('english', $1)) AS rank
		FROM meeting_vector_chunks
		WHERE meeting_id = $2
			AND content_tsv @@ plainto_tsquery('english', $1)`
	args := []any{query, meetingID}

	if filter.DocumentID != "" {
		sql += fmt.Sprintf(" AND document_id = $%d", len(args)+1)
		args = append(args, filter.DocumentID)
	}

	sql += fmt.Sprintf(" ORDER BY rank DESC LIMIT $%d", len(args)+1)
	args = append(args, topK)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("vectorindex.FullTextSearch: %w", err)
	}
	defer rows.Close()

	return scanSearchResults(rows)
}

func scanSearchResults(rows pgx.Rows) ([]model.SearchResult, error) {
	var out []model.SearchResult
	for rows.Next() {
		var r model.SearchResult
		var blockType string
		if err := rows.Scan(
			&r.Content, &r.DocumentID, &r.MeetingID, &r.PageNumber,
			&r.BBox.X0, &r.BBox.Y0, &r.BBox.X1, &r.BBox.Y1, &blockType, &r.Similarity,
		); err != nil {
			return nil, fmt.Errorf("vectorindex: scan search result: %w", err)
		}
		r.BlockType = model.BlockType(blockType)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DropCollection deletes all chunks for a meeting. Idempotent: a meeting
// with no rows still returns nil.
func (r *PostgresCollectionStore) DropCollection(ctx context.Context, meetingID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM meeting_vector_chunks WHERE meeting_id = $1`, meetingID)
	if err != nil {
		return fmt.Errorf("vectorindex.DropCollection: %w", err)
	}
	return nil
}

// ListMeetingCollections returns the deterministic collection name for
// every meeting that currently has at least one stored chunk.
func (r *PostgresCollectionStore) ListMeetingCollections(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT meeting_id FROM meeting_vector_chunks`)
	if err != nil {
		return nil, fmt.Errorf("vectorindex.ListMeetingCollections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var meetingID string
		if err := rows.Scan(&meetingID); err != nil {
			return nil, fmt.Errorf("vectorindex.ListMeetingCollections: scan: %w", err)
		}
		names = append(names, CollectionName(meetingID))
	}
	return names, rows.Err()
}

// CollectionInfo reports whether a meeting has a collection and how many
// distinct documents it holds.
func (r *PostgresCollectionStore) CollectionInfo(ctx context.Context, meetingID string) (model.CollectionInfo, error) {
	var docCount int
	err := r.pool.QueryRow(ctx, `
		SELECT count(DISTINCT document_id) FROM meeting_vector_chunks WHERE meeting_id = $1
	`, meetingID).Scan(&docCount)
	if err != nil {
		return model.CollectionInfo{}, fmt.Errorf("vectorindex.CollectionInfo: %w", err)
	}

	return model.CollectionInfo{
		Exists:        docCount > 0,
		Name:          CollectionName(meetingID),
		DocumentCount: docCount,
	}, nil
}
