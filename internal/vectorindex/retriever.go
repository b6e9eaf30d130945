package vectorindex

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/bookglebookgle/ai-core/internal/model"
)

// candidateTopK is the number of candidates fetched from each search path
// before fusion; the caller's k narrows the final returned set.
const candidateTopK = 20

// rrfK is the standard Reciprocal Rank Fusion constant.
const rrfK = 60

// resultKey identifies a SearchResult for fusion/dedup purposes. Content is
// included because the store has no surrogate chunk ID in the public
// contract; (documentID, pageNumber, content) is unique enough in practice.
func resultKey(r model.SearchResult) string {
	return fmt.Sprintf("%s|%d|%s", r.DocumentID, r.PageNumber, r.Content)
}

// query runs vector similarity search and BM25 full-text search concurrently
// against one meeting's collection, fuses them with Reciprocal Rank Fusion,
// and returns the top k results sorted by similarity descending.
func query(ctx context.Context, store CollectionStore, embedder EmbeddingClient, meetingID, queryText string, k int, filter model.SearchFilter) ([]model.SearchResult, error) {
	vecs, err := embedder.EmbedTexts(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("vectorindex.Query: embed: %w", err)
	}
	queryVec := l2Normalize(vecs[0])

	var vectorResults, bm25Results []model.SearchResult

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vectorResults, err = store.SimilaritySearch(gCtx, meetingID, queryVec, candidateTopK, filter)
		return err
	})
	g.Go(func() error {
		var err error
		bm25Results, err = store.FullTextSearch(gCtx, meetingID, queryText, candidateTopK, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("vectorindex.Query: search: %w", err)
	}

	fused := reciprocalRankFusion(vectorResults, bm25Results)

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Similarity > fused[j].Similarity
	})

	if k > 0 && k < len(fused) {
		fused = fused[:k]
	}
	return fused, nil
}

// reciprocalRankFusion merges two ranked lists using score = sum(1/(k+rank))
// across whichever lists a result appears in, then returns the union in
// fused order. Similarity values are preserved from whichever source carried
// them (vector results carry true cosine similarity; BM25-only hits keep
// their ts_rank value, which is not itself a [0,1] cosine score but is
// ordinally consistent for the later sort).
func reciprocalRankFusion(vectorResults, bm25Results []model.SearchResult) []model.SearchResult {
	scores := make(map[string]float64)
	items := make(map[string]model.SearchResult)

	for rank, r := range vectorResults {
		key := resultKey(r)
		scores[key] += 1.0 / float64(rrfK+rank+1)
		if _, ok := items[key]; !ok {
			items[key] = r
		}
	}
	for rank, r := range bm25Results {
		key := resultKey(r)
		scores[key] += 1.0 / float64(rrfK+rank+1)
		if _, ok := items[key]; !ok {
			items[key] = r
		}
	}

	type scored struct {
		result model.SearchResult
		rrf    float64
	}
	sorted := make([]scored, 0, len(items))
	for key, item := range items {
		sorted = append(sorted, scored{item, scores[key]})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].rrf > sorted[j].rrf })

	out := make([]model.SearchResult, len(sorted))
	for i, s := range sorted {
		out[i] = s.result
	}
	return out
}
