package ocringest

import (
	"context"

	"github.com/bookglebookgle/ai-core/internal/model"
)

// OCRWorkerClient is the remote OCR worker capability the pipeline fans out
// to: a streaming PDF-in, text-blocks-out service. The transport itself
// (framing, TLS) is out of scope for this repo; implementations own it.
type OCRWorkerClient interface {
	// Process sends pdfBytes to the worker over its own streaming channel,
	// framed as a single Info frame followed by N Chunk frames, and returns
	// the recognized blocks. ctx carries the page-adaptive deadline.
	Process(ctx context.Context, documentID string, pdfBytes []byte) ([]model.PositionedTextBlock, error)
}
