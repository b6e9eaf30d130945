package ocringest

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/bookglebookgle/ai-core/internal/apperr"
	"github.com/bookglebookgle/ai-core/internal/model"
)

// TailscaleStreamClient is the default OCRWorkerClient: a remote OCR worker
// reached over a private network link (Tailscale-routed in production),
// speaking the same Info-frame-then-Chunk-frames framing the worker protocol
// uses end to end. Chunk size matches the worker's own link-efficiency
// tuning (2 MiB).
type TailscaleStreamClient struct {
	endpoint   string
	chunkBytes int
	dialer     net.Dialer
}

// NewTailscaleStreamClient builds a client targeting endpoint (host:port).
func NewTailscaleStreamClient(endpoint string, chunkBytes int) *TailscaleStreamClient {
	if chunkBytes <= 0 {
		chunkBytes = 2 * 1024 * 1024
	}
	return &TailscaleStreamClient{endpoint: endpoint, chunkBytes: chunkBytes}
}

// wireFrame is the length-prefixed frame this client writes to the worker:
// a one-byte kind tag (0 = info, 1 = chunk) followed by a uint32 length and
// the payload.
const (
	frameKindInfo  byte = 0
	frameKindChunk byte = 1
)

// Process opens a connection to the worker, streams the Info frame followed
// by N Chunk frames, then reads back the JSON-encoded block list.
func (c *TailscaleStreamClient) Process(ctx context.Context, documentID string, pdfBytes []byte) ([]model.PositionedTextBlock, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.endpoint)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, fmt.Errorf("ocringest: dial worker %s: %w", c.endpoint, err))
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	w := bufio.NewWriter(conn)

	info := InfoFrame{DocumentID: documentID}
	infoBytes, _ := json.Marshal(info)
	if err := writeFrame(w, frameKindInfo, infoBytes); err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, err)
	}

	for offset := 0; offset < len(pdfBytes); offset += c.chunkBytes {
		end := offset + c.chunkBytes
		if end > len(pdfBytes) {
			end = len(pdfBytes)
		}
		if err := writeFrame(w, frameKindChunk, pdfBytes[offset:end]); err != nil {
			return nil, apperr.Wrap(apperr.Unavailable, err)
		}
		if ctx.Err() != nil {
			return nil, apperr.Wrap(apperr.Cancelled, ctx.Err())
		}
	}

	if err := w.Flush(); err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, err)
	}

	var resp workerResponse
	dec := json.NewDecoder(conn)
	if err := dec.Decode(&resp); err != nil {
		if err == io.EOF {
			return nil, apperr.New(apperr.Unavailable, "ocr worker closed connection without a response")
		}
		return nil, apperr.Wrap(apperr.Unavailable, err)
	}

	if !resp.Success {
		return nil, apperr.New(apperr.Internal, resp.Message)
	}
	return resp.toBlocks(), nil
}

func writeFrame(w *bufio.Writer, kind byte, payload []byte) error {
	if err := w.WriteByte(kind); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// workerResponse is the wire shape the OCR worker replies with.
type workerResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Blocks  []workerBlock `json:"blocks"`
}

type workerBlock struct {
	Text       string  `json:"text"`
	PageNumber int     `json:"pageNumber"`
	X0         float64 `json:"x0"`
	Y0         float64 `json:"y0"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	Confidence float64 `json:"confidence"`
	BlockType  string  `json:"blockType"`
}

func (r *workerResponse) toBlocks() []model.PositionedTextBlock {
	blocks := make([]model.PositionedTextBlock, 0, len(r.Blocks))
	for _, b := range r.Blocks {
		blocks = append(blocks, model.PositionedTextBlock{
			Text:       b.Text,
			PageNumber: b.PageNumber,
			BBox:       model.BoundingBox{X0: b.X0, Y0: b.Y0, X1: b.X1, Y1: b.Y1},
			Confidence: b.Confidence,
			BlockType:  model.BlockType(b.BlockType),
		})
	}
	return blocks
}
