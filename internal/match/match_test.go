package match

import (
	"context"
	"testing"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
)

// fakeStore returns a fixed candidate list per embedding, keyed by the
// embedding's first float value so tests can control results precisely.
type fakeStore struct {
	byKey map[float32][]entities.Candidate
}

func (f *fakeStore) Query(ctx context.Context, vector [entities.EmbeddingDim]float32, k int) ([]entities.Candidate, error) {
	cands := f.byKey[vector[0]]
	if k < len(cands) {
		cands = cands[:k]
	}
	return cands, nil
}

func vecWithKey(key float32) [entities.EmbeddingDim]float32 {
	var v [entities.EmbeddingDim]float32
	v[0] = key
	return v
}

func TestMatchHighConfidenceUniqueClaim(t *testing.T) {
	store := &fakeStore{byKey: map[float32][]entities.Candidate{
		1: {{Name: "alice", Score: 0.9}, {Name: "bob", Score: 0.2}},
	}}
	embeddings := map[string][entities.EmbeddingDim]float32{"A": vecWithKey(1)}

	results, err := Match(context.Background(), store, embeddings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := results["A"]
	if got.Confidence != entities.ConfidenceHigh {
		t.Fatalf("expected high confidence, got %s", got.Confidence)
	}
	if got.AssignedName != "alice" {
		t.Fatalf("expected alice assigned, got %q", got.AssignedName)
	}
}

func TestMatchLowScoreIsLowConfidence(t *testing.T) {
	store := &fakeStore{byKey: map[float32][]entities.Candidate{
		1: {{Name: "alice", Score: 0.1}},
	}}
	embeddings := map[string][entities.EmbeddingDim]float32{"A": vecWithKey(1)}

	results, err := Match(context.Background(), store, embeddings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results["A"].Confidence != entities.ConfidenceLow {
		t.Fatalf("expected low confidence, got %s", results["A"].Confidence)
	}
}

func TestMatchCompetingClaimsDemoteToMedium(t *testing.T) {
	// Two speakers both strongly match the same enrolled name; only one
	// can win the high-confidence claim via the assignment, the other
	// must demote.
	store := &fakeStore{byKey: map[float32][]entities.Candidate{
		1: {{Name: "alice", Score: 0.9}},
		2: {{Name: "alice", Score: 0.85}},
	}}
	embeddings := map[string][entities.EmbeddingDim]float32{
		"A": vecWithKey(1),
		"B": vecWithKey(2),
	}

	results, err := Match(context.Background(), store, embeddings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	highCount := 0
	for _, label := range []string{"A", "B"} {
		if results[label].Confidence == entities.ConfidenceHigh {
			highCount++
			if results[label].AssignedName != "alice" {
				t.Fatalf("expected alice as the high-confidence winner, got %q", results[label].AssignedName)
			}
		} else if results[label].Confidence != entities.ConfidenceMedium {
			t.Fatalf("expected the losing claim on %s to demote to medium, got %s", label, results[label].Confidence)
		}
	}
	if highCount != 1 {
		t.Fatalf("expected exactly one high-confidence claim on alice, got %d", highCount)
	}
}

func TestMatchNoCandidatesIsLowConfidence(t *testing.T) {
	store := &fakeStore{byKey: map[float32][]entities.Candidate{}}
	embeddings := map[string][entities.EmbeddingDim]float32{"A": vecWithKey(99)}

	results, err := Match(context.Background(), store, embeddings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results["A"].Confidence != entities.ConfidenceLow {
		t.Fatalf("expected low confidence with no candidates, got %s", results["A"].Confidence)
	}
}
