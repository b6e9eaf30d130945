package model

import "time"

// BlockType classifies a PositionedTextBlock's content.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockImage BlockType = "image"
	BlockTable BlockType = "table"
)

// BoundingBox is a normalized or pixel-space rectangle; invariant X0<X1, Y0<Y1.
type BoundingBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Valid reports whether the box satisfies X0<X1 and Y0<Y1.
func (b BoundingBox) Valid() bool {
	return b.X0 < b.X1 && b.Y0 < b.Y1
}

// DefaultBoundingBox is substituted for a missing or malformed bbox.
var DefaultBoundingBox = BoundingBox{X0: 0, Y0: 0, X1: 1, Y1: 1}

// PositionedTextBlock is one contiguous piece of OCR-recognized text.
// Produced by the OCR ingestion pipeline; immutable thereafter.
type PositionedTextBlock struct {
	Text       string      `json:"text"`
	PageNumber int         `json:"pageNumber"`
	BBox       BoundingBox `json:"bbox"`
	Confidence float64     `json:"confidence"`
	BlockType  BlockType   `json:"blockType"`
}

// DocumentIngest tracks a single streaming upload from first frame to
// completion. PDFBytes is discarded once ProcessDocument returns, whether it
// succeeded or failed.
type DocumentIngest struct {
	DocumentID string
	MeetingID  string
	PDFBytes   []byte
	Blocks     []PositionedTextBlock
	StartedAt  time.Time
}

// ProcessResult is the structured outcome of ProcessDocument.
type ProcessResult struct {
	Success    bool                  `json:"success"`
	Message    string                `json:"message"`
	DocumentID string                `json:"documentId"`
	TotalPages int                   `json:"totalPages"`
	TextBlocks []PositionedTextBlock `json:"textBlocks"`
}
