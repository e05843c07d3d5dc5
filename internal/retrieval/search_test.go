package retrieval

import (
	"context"
	"testing"
)

type fakeStore struct {
	vector  []VectorResult
	keyword []KeywordResult
}

func (f *fakeStore) IndexChunk(ctx context.Context, c Chunk) (Chunk, error) {
	return c, nil
}

func (f *fakeStore) SearchVector(ctx context.Context, queryVec []float32, limit int, filter SearchFilter, cfg RecencyConfig, nowMillis int64) ([]VectorResult, error) {
	return f.vector, nil
}

func (f *fakeStore) SearchKeyword(ctx context.Context, query string, limit int, filter SearchFilter) ([]KeywordResult, error) {
	return f.keyword, nil
}

var _ ChunkStore = (*fakeStore)(nil)

func TestSearchFusesVectorAndKeywordResults(t *testing.T) {
	store := &fakeStore{
		vector:  []VectorResult{{Chunk: Chunk{ID: "a", Text: "alpha"}, Score: 0.9}},
		keyword: []KeywordResult{{Chunk: Chunk{ID: "a", Text: "alpha"}, TextScore: 0.4}, {Chunk: Chunk{ID: "b", Text: "beta"}, TextScore: 0.6}},
	}

	results, err := Search(context.Background(), store, SearchInput{
		QueryText:      "alpha",
		QueryEmbedding: []float32{1, 0},
		VectorWeight:   0.6,
		TextWeight:     0.4,
		Limit:          10,
	})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 fused results, got %d: %+v", len(results), results)
	}
	if results[0].ID != "a" {
		t.Errorf("expected 'a' (fused vector+keyword) to rank first, got %q", results[0].ID)
	}
}

func TestSearchSkipsVectorLegWhenNoEmbedding(t *testing.T) {
	store := &fakeStore{
		vector:  []VectorResult{{Chunk: Chunk{ID: "a"}, Score: 0.9}},
		keyword: []KeywordResult{{Chunk: Chunk{ID: "b"}, TextScore: 0.5}},
	}
	results, err := Search(context.Background(), store, SearchInput{QueryText: "beta", VectorWeight: 0.5, TextWeight: 0.5})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "b" {
		t.Errorf("expected only the keyword result, got %+v", results)
	}
}

func TestSearchRespectsLimit(t *testing.T) {
	store := &fakeStore{
		keyword: []KeywordResult{
			{Chunk: Chunk{ID: "a"}, TextScore: 0.9},
			{Chunk: Chunk{ID: "b"}, TextScore: 0.5},
			{Chunk: Chunk{ID: "c"}, TextScore: 0.1},
		},
	}
	results, err := Search(context.Background(), store, SearchInput{QueryText: "x", TextWeight: 1, Limit: 2})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected limit to cap results at 2, got %d", len(results))
	}
}
