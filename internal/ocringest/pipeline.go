package ocringest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bookglebookgle/ai-core/internal/apperr"
	"github.com/bookglebookgle/ai-core/internal/model"
)

// Config is the subset of settings the pipeline needs, decoupled from
// internal/config so this package stays independently testable.
type Config struct {
	MaxUploadBytes int64
	BaseTimeout    time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

// Pipeline implements ProcessDocument: chunked intake, remote OCR fanout
// with retry and page-adaptive timeout, and result assembly. Concurrent
// ingests are fully independent; the pipeline carries no cross-request
// state.
type Pipeline struct {
	worker OCRWorkerClient
	cfg    Config
	log    *slog.Logger
}

// New builds a Pipeline over the given worker client.
func New(worker OCRWorkerClient, cfg Config, log *slog.Logger) *Pipeline {
	return &Pipeline{worker: worker, cfg: cfg, log: log}
}

// ProcessDocument reads frames from in until the channel closes, then
// fans out to the OCR worker and returns the assembled result. The first
// frame read MUST carry Info; anything else is InvalidArgument.
func (p *Pipeline) ProcessDocument(ctx context.Context, in <-chan Frame) (*model.ProcessResult, error) {
	first, ok := <-in
	if !ok || first.Info == nil {
		return nil, apperr.New(apperr.InvalidArgument, "first frame must carry document metadata")
	}

	ingest := &model.DocumentIngest{
		DocumentID: first.Info.DocumentID,
		MeetingID:  first.Info.MeetingID,
		StartedAt:  time.Now(),
	}

	var buf []byte
	for frame := range in {
		if frame.Info != nil {
			return nil, apperr.New(apperr.InvalidArgument, "metadata frame must be first")
		}
		if int64(len(buf)+len(frame.Chunk)) > p.cfg.MaxUploadBytes {
			return nil, apperr.New(apperr.PayloadTooLarge, fmt.Sprintf("upload exceeds %d byte cap", p.cfg.MaxUploadBytes))
		}
		buf = append(buf, frame.Chunk...)

		select {
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.Cancelled, ctx.Err())
		default:
		}
	}

	if len(buf) == 0 {
		return &model.ProcessResult{
			Success:    false,
			Message:    "No PDF data received",
			DocumentID: ingest.DocumentID,
		}, nil
	}
	ingest.PDFBytes = buf

	pageCount := probePageCount(buf)

	blocks, err := withRetry(ctx, p.log, "ocr.process", p.cfg.RetryAttempts, p.cfg.RetryDelay, func(attempt int) ([]model.PositionedTextBlock, error) {
		timeout := effectiveTimeout(p.cfg.BaseTimeout, pageCount, attempt)
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		blocks, err := p.worker.Process(attemptCtx, ingest.DocumentID, ingest.PDFBytes)
		if err != nil {
			if attemptCtx.Err() != nil && ctx.Err() == nil {
				return nil, apperr.Wrap(apperr.Unavailable, fmt.Errorf("ocr worker timed out after %s: %w", timeout, err))
			}
			return nil, err
		}
		return blocks, nil
	})
	if err != nil {
		return &model.ProcessResult{
			Success:    false,
			Message:    err.Error(),
			DocumentID: ingest.DocumentID,
		}, nil
	}

	blocks = sanitizeBlocks(blocks, p.log)
	ingest.Blocks = blocks

	totalPages := 0
	for _, b := range blocks {
		if b.PageNumber > totalPages {
			totalPages = b.PageNumber
		}
	}

	return &model.ProcessResult{
		Success:    true,
		Message:    "ok",
		DocumentID: ingest.DocumentID,
		TotalPages: totalPages,
		TextBlocks: blocks,
	}, nil
}

// sanitizeBlocks applies the edge-case policies: substitute a default bbox
// for missing/malformed boxes (with a warning), and drop only blocks whose
// text is empty after trim.
func sanitizeBlocks(blocks []model.PositionedTextBlock, log *slog.Logger) []model.PositionedTextBlock {
	out := make([]model.PositionedTextBlock, 0, len(blocks))
	for _, b := range blocks {
		trimmed := strings.TrimSpace(b.Text)
		if trimmed == "" {
			continue
		}
		if !b.BBox.Valid() {
			log.Warn("ocr block had missing/malformed bbox, substituting default", "page", b.PageNumber)
			b.BBox = model.DefaultBoundingBox
		}
		if b.BlockType == "" {
			b.BlockType = model.BlockText
		}
		out = append(out, b)
	}
	return out
}
