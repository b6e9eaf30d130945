package ocringest

import (
	"context"
	"log/slog"
	"io"
	"testing"
	"time"

	"github.com/bookglebookgle/ai-core/internal/apperr"
	"github.com/bookglebookgle/ai-core/internal/model"
)

type fakeWorker struct {
	failuresBeforeSuccess int
	calls                 int
	blocks                []model.PositionedTextBlock
	alwaysErr             error
}

func (f *fakeWorker) Process(ctx context.Context, documentID string, pdfBytes []byte) ([]model.PositionedTextBlock, error) {
	f.calls++
	if f.alwaysErr != nil {
		return nil, f.alwaysErr
	}
	if f.calls <= f.failuresBeforeSuccess {
		return nil, apperr.New(apperr.Unavailable, "worker unavailable")
	}
	return f.blocks, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sendFrames(ch chan<- Frame, info *InfoFrame, chunks ...[]byte) {
	ch <- Frame{Info: info}
	for _, c := range chunks {
		ch <- Frame{Chunk: c}
	}
	close(ch)
}

func TestProcessDocument_HappyPath(t *testing.T) {
	worker := &fakeWorker{blocks: []model.PositionedTextBlock{
		{Text: "page one text", PageNumber: 1, BBox: model.BoundingBox{X0: 0, Y0: 0, X1: 1, Y1: 1}, Confidence: 0.9, BlockType: model.BlockText},
		{Text: "page two text", PageNumber: 2, BBox: model.BoundingBox{X0: 0, Y0: 0, X1: 1, Y1: 1}, Confidence: 0.95, BlockType: model.BlockText},
	}}
	p := New(worker, Config{MaxUploadBytes: 1 << 20, BaseTimeout: time.Second, RetryAttempts: 3, RetryDelay: time.Millisecond}, testLogger())

	ch := make(chan Frame, 8)
	go sendFrames(ch, &InfoFrame{DocumentID: "D1", MeetingID: "M1"}, []byte("chunk-a"), []byte("chunk-b"), []byte("chunk-c"))

	result, err := p.ProcessDocument(context.Background(), ch)
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got message %q", result.Message)
	}
	if result.TotalPages != 2 {
		t.Errorf("TotalPages = %d, want 2", result.TotalPages)
	}
	if len(result.TextBlocks) != 2 {
		t.Errorf("len(TextBlocks) = %d, want 2", len(result.TextBlocks))
	}
}

func TestProcessDocument_ZeroChunks(t *testing.T) {
	worker := &fakeWorker{}
	p := New(worker, Config{MaxUploadBytes: 1 << 20, BaseTimeout: time.Second, RetryAttempts: 3, RetryDelay: time.Millisecond}, testLogger())

	ch := make(chan Frame, 1)
	go sendFrames(ch, &InfoFrame{DocumentID: "D1", MeetingID: "M1"})

	result, err := p.ProcessDocument(context.Background(), ch)
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if result.Success {
		t.Error("expected success=false for zero chunks")
	}
	if result.Message != "No PDF data received" {
		t.Errorf("Message = %q, want %q", result.Message, "No PDF data received")
	}
}

func TestProcessDocument_MissingFirstFrame(t *testing.T) {
	worker := &fakeWorker{}
	p := New(worker, Config{MaxUploadBytes: 1 << 20, BaseTimeout: time.Second, RetryAttempts: 3, RetryDelay: time.Millisecond}, testLogger())

	ch := make(chan Frame, 1)
	ch <- Frame{Chunk: []byte("oops")}
	close(ch)

	_, err := p.ProcessDocument(context.Background(), ch)
	if apperr.KindOf(err) != apperr.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestProcessDocument_PayloadTooLarge(t *testing.T) {
	worker := &fakeWorker{}
	p := New(worker, Config{MaxUploadBytes: 4, BaseTimeout: time.Second, RetryAttempts: 1, RetryDelay: time.Millisecond}, testLogger())

	ch := make(chan Frame, 4)
	go sendFrames(ch, &InfoFrame{DocumentID: "D1", MeetingID: "M1"}, []byte("too many bytes"))

	_, err := p.ProcessDocument(context.Background(), ch)
	if apperr.KindOf(err) != apperr.PayloadTooLarge {
		t.Fatalf("expected PayloadTooLarge, got %v", err)
	}
}

func TestProcessDocument_RetriesThenSucceeds(t *testing.T) {
	worker := &fakeWorker{
		failuresBeforeSuccess: 2,
		blocks: []model.PositionedTextBlock{
			{Text: "ok", PageNumber: 1, BBox: model.BoundingBox{X0: 0, Y0: 0, X1: 1, Y1: 1}, Confidence: 0.8},
		},
	}
	p := New(worker, Config{MaxUploadBytes: 1 << 20, BaseTimeout: time.Millisecond, RetryAttempts: 3, RetryDelay: time.Millisecond}, testLogger())

	ch := make(chan Frame, 4)
	go sendFrames(ch, &InfoFrame{DocumentID: "D1", MeetingID: "M1"}, []byte("x"))

	result, err := p.ProcessDocument(context.Background(), ch)
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("expected eventual success, got %q", result.Message)
	}
	if worker.calls != 3 {
		t.Errorf("calls = %d, want 3", worker.calls)
	}
}

func TestProcessDocument_RetriesExhausted(t *testing.T) {
	worker := &fakeWorker{failuresBeforeSuccess: 99}
	p := New(worker, Config{MaxUploadBytes: 1 << 20, BaseTimeout: time.Millisecond, RetryAttempts: 3, RetryDelay: time.Millisecond}, testLogger())

	ch := make(chan Frame, 4)
	go sendFrames(ch, &InfoFrame{DocumentID: "D1", MeetingID: "M1"}, []byte("x"))

	result, err := p.ProcessDocument(context.Background(), ch)
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if result.Success {
		t.Error("expected success=false after retries exhausted")
	}
	if worker.calls != 3 {
		t.Errorf("calls = %d, want 3", worker.calls)
	}
}

func TestProcessDocument_MalformedBBoxSubstituted(t *testing.T) {
	worker := &fakeWorker{blocks: []model.PositionedTextBlock{
		{Text: "bad box", PageNumber: 1, BBox: model.BoundingBox{X0: 5, Y0: 5, X1: 1, Y1: 1}, Confidence: 0.5},
	}}
	p := New(worker, Config{MaxUploadBytes: 1 << 20, BaseTimeout: time.Second, RetryAttempts: 1, RetryDelay: time.Millisecond}, testLogger())

	ch := make(chan Frame, 4)
	go sendFrames(ch, &InfoFrame{DocumentID: "D1", MeetingID: "M1"}, []byte("x"))

	result, err := p.ProcessDocument(context.Background(), ch)
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if !result.Success || len(result.TextBlocks) != 1 {
		t.Fatalf("expected 1 block kept with substituted bbox, got %+v", result)
	}
	if result.TextBlocks[0].BBox != model.DefaultBoundingBox {
		t.Errorf("BBox = %+v, want default", result.TextBlocks[0].BBox)
	}
}

func TestProcessDocument_EmptyTextDropped(t *testing.T) {
	worker := &fakeWorker{blocks: []model.PositionedTextBlock{
		{Text: "   ", PageNumber: 1, BBox: model.BoundingBox{X0: 0, Y0: 0, X1: 1, Y1: 1}, Confidence: 0.5},
		{Text: "keep me", PageNumber: 1, BBox: model.BoundingBox{X0: 0, Y0: 0, X1: 1, Y1: 1}, Confidence: 0.5},
	}}
	p := New(worker, Config{MaxUploadBytes: 1 << 20, BaseTimeout: time.Second, RetryAttempts: 1, RetryDelay: time.Millisecond}, testLogger())

	ch := make(chan Frame, 4)
	go sendFrames(ch, &InfoFrame{DocumentID: "D1", MeetingID: "M1"}, []byte("x"))

	result, err := p.ProcessDocument(context.Background(), ch)
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if len(result.TextBlocks) != 1 {
		t.Fatalf("expected empty-text block dropped, got %d blocks", len(result.TextBlocks))
	}
}

func TestEffectiveTimeout(t *testing.T) {
	got := effectiveTimeout(30*time.Second, 10, 0)
	want := 50 * time.Second // max(30, 10*5) + 0
	if got != want {
		t.Errorf("effectiveTimeout() = %v, want %v", got, want)
	}

	got = effectiveTimeout(30*time.Second, 1, 2)
	want = 30*time.Second + 20*time.Second // max(30,5)=30 + 2*10
	if got != want {
		t.Errorf("effectiveTimeout() = %v, want %v", got, want)
	}
}

func TestProbePageCount(t *testing.T) {
	pdf := []byte("/Type /Pages /Kids [] /Type /Page /Type /Page")
	if got := probePageCount(pdf); got != 2 {
		t.Errorf("probePageCount() = %d, want 2", got)
	}

	if got := probePageCount(nil); got != 1 {
		t.Errorf("probePageCount(nil) = %d, want 1", got)
	}
}
