// Package ocringest implements the streaming OCR ingestion pipeline: chunked
// PDF intake, fanout to the remote OCR worker with retry and a page-adaptive
// timeout, and assembly of the resulting positioned text blocks.
package ocringest

// InfoFrame carries the metadata that MUST arrive as the first frame of a
// ProcessDocument stream.
type InfoFrame struct {
	DocumentID string
	MeetingID  string
}

// Frame is one frame of the inbound chunked-upload stream. Exactly one of
// Info or Chunk is set; Info only ever appears as the first frame.
type Frame struct {
	Info  *InfoFrame
	Chunk []byte
}
