package memory

import (
	"context"
	"testing"

	"github.com/easeaico/ensemble/internal/types"
)

type fakeEmbedder struct {
	queries   []string
	documents []string
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.queries = append(e.queries, text)
	return []float32{0.1, 0.2, 0.3}, nil
}

func (e *fakeEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	e.documents = append(e.documents, text)
	return []float32{0.4, 0.5, 0.6}, nil
}

type fakeSearchRepo struct {
	added   []*types.CharacterMemory
	results []types.ScoredMemory

	characterID string
	topK        int
	threshold   float64
}

func (r *fakeSearchRepo) AddMemory(ctx context.Context, mem *types.CharacterMemory) error {
	r.added = append(r.added, mem)
	return nil
}

func (r *fakeSearchRepo) SearchSimilar(ctx context.Context, characterID string, embedding []float32, topK int, threshold float64) ([]types.ScoredMemory, error) {
	r.characterID = characterID
	r.topK = topK
	r.threshold = threshold
	return r.results, nil
}

func TestRecallWithoutEmbedderReturnsNil(t *testing.T) {
	recall := NewRecall(nil, &fakeSearchRepo{}, 5, 0.7)

	results, err := recall.Recall(context.Background(), "c1", "rainy days")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestRecallEmbedsQueryAndSearches(t *testing.T) {
	embedder := &fakeEmbedder{}
	repo := &fakeSearchRepo{results: []types.ScoredMemory{{Content: "likes rain", Similarity: 0.9}}}
	recall := NewRecall(embedder, repo, 3, 0.5)

	results, err := recall.Recall(context.Background(), "c1", "rainy days")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(results) != 1 || results[0].Content != "likes rain" {
		t.Fatalf("unexpected results: %#v", results)
	}
	if len(embedder.queries) != 1 || embedder.queries[0] != "rainy days" {
		t.Fatalf("query not embedded: %#v", embedder.queries)
	}
	if repo.characterID != "c1" || repo.topK != 3 || repo.threshold != 0.5 {
		t.Fatalf("search parameters not forwarded: %#v", repo)
	}
}

func TestRecallEmptyQueryIsNoop(t *testing.T) {
	embedder := &fakeEmbedder{}
	recall := NewRecall(embedder, &fakeSearchRepo{}, 5, 0.7)

	results, err := recall.Recall(context.Background(), "c1", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if results != nil || len(embedder.queries) != 0 {
		t.Fatal("expected no embedding for empty query")
	}
}

func TestRememberEmbedsAndClampsImportance(t *testing.T) {
	embedder := &fakeEmbedder{}
	repo := &fakeSearchRepo{}
	recall := NewRecall(embedder, repo, 5, 0.7)

	mem, err := recall.Remember(context.Background(), "c1", "found the old map", "exploration", 1.5)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if mem.Importance != 1 {
		t.Fatalf("expected importance clamped to 1, got %v", mem.Importance)
	}
	if len(mem.Embedding) == 0 {
		t.Fatal("expected embedding to be set")
	}
	if len(repo.added) != 1 || repo.added[0].CharacterID != "c1" {
		t.Fatalf("memory not stored: %#v", repo.added)
	}
}

func TestRememberWithoutEmbedderStoresPlain(t *testing.T) {
	repo := &fakeSearchRepo{}
	recall := NewRecall(nil, repo, 5, 0.7)

	mem, err := recall.Remember(context.Background(), "c1", "met the blacksmith", "town", -1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if mem.Importance != types.DefaultImportance {
		t.Fatalf("expected default importance, got %v", mem.Importance)
	}
	if len(mem.Embedding) != 0 {
		t.Fatal("expected no embedding without an embedder")
	}
}
