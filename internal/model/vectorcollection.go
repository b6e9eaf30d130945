package model

import "time"

// MeetingVectorCollection is a named partition of the vector store, exactly
// one per meetingID. Creation and deletion are both idempotent.
type MeetingVectorCollection struct {
	Name          string    `json:"name"`
	MeetingID     string    `json:"meetingId"`
	DocumentCount int       `json:"documentCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CollectionInfo summarizes the current state of a meeting's collection.
type CollectionInfo struct {
	Exists        bool   `json:"exists"`
	Name          string `json:"name"`
	DocumentCount int    `json:"documentCount"`
}

// VectorChunk is one embedded, stored unit derived from a PositionedTextBlock.
// It is what the Vector Index Manager actually persists and searches over.
type VectorChunk struct {
	ID         string    `json:"id"`
	MeetingID  string    `json:"meetingId"`
	DocumentID string    `json:"documentId"`
	Content    string    `json:"content"`
	PageNumber int       `json:"pageNumber"`
	BBox       BoundingBox `json:"bbox"`
	BlockType  BlockType `json:"blockType"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SearchFilter narrows a Query call.
type SearchFilter struct {
	DocumentID string
}

// SearchResult is one ranked hit returned by Query.
type SearchResult struct {
	Content    string      `json:"content"`
	Similarity float64     `json:"similarity"`
	DocumentID string      `json:"documentId"`
	MeetingID  string      `json:"meetingId"`
	PageNumber int         `json:"pageNumber"`
	BBox       BoundingBox `json:"bbox"`
	BlockType  BlockType   `json:"blockType"`
}
