package ocringest

import (
	"context"
	"fmt"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/bookglebookgle/ai-core/internal/apperr"
	"github.com/bookglebookgle/ai-core/internal/model"
)

// DocumentAIWorkerClient is an alternate OCRWorkerClient backed by Google
// Document AI, kept as a concrete option alongside TailscaleStreamClient per
// the two OCR transport paths noted in the spec's open questions. It
// processes the assembled PDF inline (no GCS round-trip is required by this
// repo's DocumentIngest lifecycle, which never persists pdfBytes).
type DocumentAIWorkerClient struct {
	client    *documentai.DocumentProcessorClient
	processor string // full resource name: projects/{p}/locations/{l}/processors/{id}
}

// NewDocumentAIWorkerClient dials Document AI in the given location.
func NewDocumentAIWorkerClient(ctx context.Context, location, processor string) (*DocumentAIWorkerClient, error) {
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)
	client, err := documentai.NewDocumentProcessorClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("ocringest.NewDocumentAIWorkerClient: %w", err)
	}
	return &DocumentAIWorkerClient{client: client, processor: processor}, nil
}

// Process sends the raw PDF bytes to Document AI and maps its layout blocks
// onto PositionedTextBlock. Document AI returns page-level text plus block
// bounding polys; this adapter flattens paragraphs into one block per
// paragraph, which is the finest grain the spec's data model needs.
func (a *DocumentAIWorkerClient) Process(ctx context.Context, documentID string, pdfBytes []byte) ([]model.PositionedTextBlock, error) {
	req := &documentaipb.ProcessRequest{
		Name: a.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
	}

	resp, err := a.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, fmt.Errorf("ocringest: documentai ProcessDocument: %w", err))
	}
	if resp.Document == nil {
		return nil, apperr.New(apperr.Internal, "documentai: nil document in response")
	}

	var blocks []model.PositionedTextBlock
	text := resp.Document.Text
	for pageIdx, page := range resp.Document.Pages {
		for _, para := range page.Paragraphs {
			content := textFromAnchor(text, para.Layout.GetTextAnchor())
			if content == "" {
				continue
			}
			bbox := model.DefaultBoundingBox
			if poly := para.Layout.GetBoundingPoly(); poly != nil && len(poly.NormalizedVertices) >= 2 {
				bbox = boundsFromVertices(poly.NormalizedVertices)
			}
			blocks = append(blocks, model.PositionedTextBlock{
				Text:       content,
				PageNumber: pageIdx + 1,
				BBox:       bbox,
				Confidence: float64(para.Layout.GetConfidence()),
				BlockType:  model.BlockText,
			})
		}
	}

	return blocks, nil
}

func textFromAnchor(fullText string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil {
		return ""
	}
	var out string
	for _, seg := range anchor.TextSegments {
		start, end := int(seg.StartIndex), int(seg.EndIndex)
		if start < 0 || end > len(fullText) || start > end {
			continue
		}
		out += fullText[start:end]
	}
	return out
}

func boundsFromVertices(vs []*documentaipb.NormalizedVertex) model.BoundingBox {
	x0, y0 := vs[0].X, vs[0].Y
	x1, y1 := x0, y0
	for _, v := range vs[1:] {
		if v.X < x0 {
			x0 = v.X
		}
		if v.X > x1 {
			x1 = v.X
		}
		if v.Y < y0 {
			y0 = v.Y
		}
		if v.Y > y1 {
			y1 = v.Y
		}
	}
	bbox := model.BoundingBox{X0: float64(x0), Y0: float64(y0), X1: float64(x1), Y1: float64(y1)}
	if !bbox.Valid() {
		return model.DefaultBoundingBox
	}
	return bbox
}

// Close releases the underlying connection.
func (a *DocumentAIWorkerClient) Close() error {
	return a.client.Close()
}
