package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
	"github.com/hoangtranvan/speaker-id-service/internal/vectorstore"
)

type fakeStore struct {
	vectors map[string][entities.EmbeddingDim]float32
	meta    map[string]vectorstore.Metadata
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		vectors: make(map[string][entities.EmbeddingDim]float32),
		meta:    make(map[string]vectorstore.Metadata),
	}
}

func (f *fakeStore) Upsert(ctx context.Context, name string, embedding [entities.EmbeddingDim]float32, meta vectorstore.Metadata) error {
	f.vectors[name] = embedding
	f.meta[name] = meta
	return nil
}

func (f *fakeStore) Get(ctx context.Context, name string) ([entities.EmbeddingDim]float32, vectorstore.Metadata, bool, error) {
	v, ok := f.vectors[name]
	return v, f.meta[name], ok, nil
}

func (f *fakeStore) Delete(ctx context.Context, name string) error {
	delete(f.vectors, name)
	delete(f.meta, name)
	return nil
}

func (f *fakeStore) ListAll(ctx context.Context) ([]entities.Voiceprint, error) {
	out := make([]entities.Voiceprint, 0, len(f.vectors))
	for name, v := range f.vectors {
		out = append(out, entities.Voiceprint{Name: name, Embedding: v, SampleCount: f.meta[name].SampleCount})
	}
	return out, nil
}

func embWithValue(x float32) [entities.EmbeddingDim]float32 {
	var v [entities.EmbeddingDim]float32
	for i := range v {
		v[i] = x
	}
	return v
}

func TestEnrollFromMeetingFirstSampleNormalizesOnly(t *testing.T) {
	store := newFakeStore()
	reg := New(store, filepath.Join(t.TempDir(), "mirror.json"), nil)

	result, err := reg.EnrollFromMeeting(context.Background(), "alice", embWithValue(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SampleCount != 1 {
		t.Fatalf("expected sample count 1 for a first enrollment, got %d", result.SampleCount)
	}
}

func TestEnrollFromMeetingFoldsSubsequentSamples(t *testing.T) {
	store := newFakeStore()
	reg := New(store, filepath.Join(t.TempDir(), "mirror.json"), nil)

	if _, err := reg.EnrollFromMeeting(context.Background(), "alice", embWithValue(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := reg.EnrollFromMeeting(context.Background(), "alice", embWithValue(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SampleCount != 2 {
		t.Fatalf("expected sample count 2 after a second fold, got %d", result.SampleCount)
	}
}

func TestEnrollFromMeetingRejectsEmptyName(t *testing.T) {
	store := newFakeStore()
	reg := New(store, filepath.Join(t.TempDir(), "mirror.json"), nil)

	if _, err := reg.EnrollFromMeeting(context.Background(), "", embWithValue(1)); err == nil {
		t.Fatalf("expected an error for an empty name")
	}
}

func TestSwitchesFromWeightedAverageToEMA(t *testing.T) {
	store := newFakeStore()
	reg := New(store, filepath.Join(t.TempDir(), "mirror.json"), nil)

	var result EnrollResult
	var err error
	for i := 0; i < EMAMinSamples+1; i++ {
		result, err = reg.EnrollFromMeeting(context.Background(), "alice", embWithValue(1))
		if err != nil {
			t.Fatalf("unexpected error on sample %d: %v", i, err)
		}
	}
	// weight=1 per call, so both regimes add 1 and the count is
	// EMAMinSamples+1 after EMAMinSamples+1 calls.
	if result.SampleCount != EMAMinSamples+1 {
		t.Fatalf("expected sample count %d, got %d", EMAMinSamples+1, result.SampleCount)
	}

	// Past the boundary a weight-2 fold takes the EMA branch and adds exactly
	// 1, not the fold weight.
	result, err = reg.fold(context.Background(), "alice", embWithValue(1), 2)
	if err != nil {
		t.Fatalf("unexpected error on weighted fold: %v", err)
	}
	if result.SampleCount != EMAMinSamples+2 {
		t.Fatalf("expected sample count %d after an EMA fold, got %d", EMAMinSamples+2, result.SampleCount)
	}
}

func TestDeleteRemovesFromStoreAndMirror(t *testing.T) {
	store := newFakeStore()
	reg := New(store, filepath.Join(t.TempDir(), "mirror.json"), nil)

	if _, err := reg.EnrollFromMeeting(context.Background(), "alice", embWithValue(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Delete(context.Background(), "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, exists, _ := store.Get(context.Background(), "alice"); exists {
		t.Fatalf("expected alice to be removed from the store")
	}
}

func TestSyncFromStoreRebuildsList(t *testing.T) {
	store := newFakeStore()
	store.vectors["alice"] = embWithValue(1)
	store.meta["alice"] = vectorstore.Metadata{SampleCount: 3}

	reg := New(store, filepath.Join(t.TempDir(), "mirror.json"), nil)
	count, err := reg.SyncFromStore(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 synced entry, got %d", count)
	}
	list := reg.List()
	if list["alice"] != 3 {
		t.Fatalf("expected alice to show 3 samples, got %d", list["alice"])
	}
}
