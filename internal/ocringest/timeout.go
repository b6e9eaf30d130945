package ocringest

import (
	"bytes"
	"time"
)

// effectiveTimeout implements the page-adaptive timeout formula:
// max(baseTimeout, pageCount*5s) + attempt*10s.
func effectiveTimeout(baseTimeout time.Duration, pageCount, attempt int) time.Duration {
	byPages := time.Duration(pageCount) * 5 * time.Second
	base := baseTimeout
	if byPages > base {
		base = byPages
	}
	return base + time.Duration(attempt)*10*time.Second
}

// probePageCount estimates a PDF's page count by scanning for page-object
// markers in the raw bytes. This is a local, dependency-free heuristic (no
// PDF-parsing library appears anywhere in the example corpus) good enough to
// drive the adaptive timeout; it is never used for anything that requires
// exactness. Returns at least 1 for any non-empty input.
func probePageCount(pdfBytes []byte) int {
	if len(pdfBytes) == 0 {
		return 1
	}
	count := bytes.Count(pdfBytes, []byte("/Type/Page")) + bytes.Count(pdfBytes, []byte("/Type /Page"))
	// Each "/Type /Page" object is also matched as a substring of
	// "/Type /Pages" (the tree-root node), so that gets double counted once;
	// correct by subtracting occurrences of "/Type /Pages" and "/Type/Pages".
	count -= bytes.Count(pdfBytes, []byte("/Type/Pages")) + bytes.Count(pdfBytes, []byte("/Type /Pages"))
	if count < 1 {
		return 1
	}
	return count
}
