package vectorindex

import (
	"strings"

	"github.com/bookglebookgle/ai-core/internal/model"
)

const (
	minChunkChars = 300
	maxChunkChars = 800
	overlapChars  = 50
)

// pendingChunk is a chunk candidate before embedding; it carries the page
// and bbox it inherited from the source block.
type pendingChunk struct {
	content    string
	documentID string
	pageNumber int
	bbox       model.BoundingBox
	blockType  model.BlockType
}

// chunkBlocks splits each block's text at semantic boundaries (paragraphs,
// then sentences) targeting 300-800 characters with a 50-character overlap
// between adjacent chunks from the same block. Every resulting chunk
// inherits its source block's page number and bounding box verbatim, since
// a chunk never spans more than one block.
func chunkBlocks(documentID string, blocks []model.PositionedTextBlock) []pendingChunk {
	var out []pendingChunk
	for _, b := range blocks {
		for _, piece := range splitToCharRange(b.Text) {
			out = append(out, pendingChunk{
				content:    piece,
				documentID: documentID,
				pageNumber: b.PageNumber,
				bbox:       b.BBox,
				blockType:  b.BlockType,
			})
		}
	}
	return out
}

// splitToCharRange splits text into pieces of roughly minChunkChars to
// maxChunkChars, preferring paragraph boundaries then sentence boundaries,
// and prepends the tail of the previous piece (overlapChars) to each
// subsequent piece.
func splitToCharRange(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	paragraphs := splitParagraphs(text)
	segments := mergeToRange(paragraphs)

	if len(segments) <= 1 {
		return segments
	}

	out := make([]string, len(segments))
	out[0] = segments[0]
	for i := 1; i < len(segments); i++ {
		tail := lastNChars(segments[i-1], overlapChars)
		if tail == "" {
			out[i] = segments[i]
			continue
		}
		out[i] = tail + " " + segments[i]
	}
	return out
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	var out []string
	for _, p := range raw {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		out = []string{text}
	}
	return out
}

// mergeToRange merges short paragraphs together and splits long ones on
// sentence boundaries until every segment falls within
// [minChunkChars, maxChunkChars], best-effort (the final segment of a
// document may be shorter than the minimum).
func mergeToRange(paragraphs []string) []string {
	var out []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		out = append(out, strings.TrimSpace(current.String()))
		current.Reset()
	}

	for _, para := range paragraphs {
		if len(para) > maxChunkChars {
			flush()
			out = append(out, splitBySentence(para)...)
			continue
		}

		if current.Len() > 0 && current.Len()+1+len(para) > maxChunkChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(para)

		if current.Len() >= minChunkChars {
			flush()
		}
	}
	flush()

	return out
}

// splitBySentence splits an oversized paragraph on sentence boundaries,
// accumulating sentences until minChunkChars is reached or the next
// sentence would push the segment past maxChunkChars.
func splitBySentence(para string) []string {
	sentences := sentenceSplit(para)
	var out []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		out = append(out, strings.TrimSpace(current.String()))
		current.Reset()
	}

	for _, sent := range sentences {
		if current.Len() > 0 && current.Len()+1+len(sent) > maxChunkChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		if current.Len() >= minChunkChars {
			flush()
		}
	}
	flush()

	if len(out) == 0 && para != "" {
		out = splitByHardWidth(para, maxChunkChars)
	}
	return out
}

// sentenceSplit does a basic split on ". ", "! ", "? " boundaries.
func sentenceSplit(text string) []string {
	var out []string
	var current strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && runes[i+1] == ' ' {
			out = append(out, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		out = append(out, strings.TrimSpace(current.String()))
	}
	return out
}

// splitByHardWidth is the last resort for a single sentence longer than
// maxChunkChars: a plain rune-width split.
func splitByHardWidth(text string, width int) []string {
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); i += width {
		end := i + width
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

func lastNChars(text string, n int) string {
	runes := []rune(text)
	if n >= len(runes) {
		return text
	}
	return string(runes[len(runes)-n:])
}
