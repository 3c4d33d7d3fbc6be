// Package registry implements C5: the enrollment and voiceprint-update
// protocol. It sits in front of the C4 vector store and keeps a durable
// local mirror for fast listings, the way the teacher's AI service sits
// in front of its repository and keeps derived state in sync.
package registry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
	"github.com/hoangtranvan/speaker-id-service/internal/embedding"
	"github.com/hoangtranvan/speaker-id-service/internal/vecmath"
	"github.com/hoangtranvan/speaker-id-service/internal/vectorstore"
	"github.com/hoangtranvan/speaker-id-service/pkg/audio"
	"github.com/hoangtranvan/speaker-id-service/pkg/vad"

	apperrors "github.com/hoangtranvan/speaker-id-service/errors"
)

// EMAMinSamples is the number of samples, after which enrollment switches
// from weighted averaging to exponential moving average updates.
const EMAMinSamples = 4

// EMAAlpha is the EMA update weight for v_new once EMAMinSamples is reached.
const EMAAlpha = 0.3

// Minimum raw/speech durations enforced on direct enrollment, in ms.
const (
	minRawDurationMS    = 5000
	minSpeechMS         = 3000
	warnSpeechCeilingMS = 5000
)

// Store is the subset of the C4 vector store the registry depends on.
type Store interface {
	Upsert(ctx context.Context, name string, embedding [entities.EmbeddingDim]float32, meta vectorstore.Metadata) error
	Get(ctx context.Context, name string) ([entities.EmbeddingDim]float32, vectorstore.Metadata, bool, error)
	Delete(ctx context.Context, name string) error
	ListAll(ctx context.Context) ([]entities.Voiceprint, error)
}

// Registry implements C5 over a Store and a durable local mirror.
type Registry struct {
	store  Store
	mirror *mirror
	locks  *nameLock
	logger *zap.Logger
}

// New constructs a Registry. Callers should call SyncFromStore once at
// startup to rebuild the mirror from the source of truth.
func New(store Store, mirrorPath string, logger *zap.Logger) *Registry {
	return &Registry{
		store:  store,
		mirror: newMirror(mirrorPath),
		locks:  newNameLock(),
		logger: logger,
	}
}

// EnrollResult is the outcome of Enroll / EnrollFromMeeting.
type EnrollResult struct {
	SampleCount int
	Warning     string
}

// Enroll implements enroll(name, audio_file, weight=2): duration-gates the
// raw upload, converts it, VAD-gates the speech content, extracts an
// embedding, and folds it into the existing voiceprint (if any).
func (r *Registry) Enroll(ctx context.Context, name, audioPath string, weight int) (EnrollResult, error) {
	if name == "" {
		return EnrollResult{}, apperrors.NewInvalidInput("name must not be empty")
	}
	if weight <= 0 {
		weight = 2
	}

	raw, err := audio.Load(audioPath)
	if err != nil {
		return EnrollResult{}, apperrors.NewInvalidInput(fmt.Sprintf("could not read audio: %v", err))
	}
	if raw.DurationMS() < minRawDurationMS {
		return EnrollResult{}, apperrors.NewInvalidInput("audio must be at least 5 seconds long")
	}

	converted := raw
	if raw.SampleRate != audio.TargetSampleRate {
		converted, err = audio.Resample(raw, audio.TargetSampleRate)
		if err != nil {
			return EnrollResult{}, apperrors.NewInternal(err)
		}
	}

	speech := vad.StripSilence(converted)
	speechMS := vad.SpeechDurationMS(speech)
	if speechMS < minSpeechMS {
		return EnrollResult{}, apperrors.NewInvalidInput("insufficient speech after silence removal")
	}

	vNew, err := embedding.Extract(converted)
	if err != nil {
		return EnrollResult{}, err
	}

	result, err := r.fold(ctx, name, vNew, weight)
	if err != nil {
		return EnrollResult{}, err
	}

	if speechMS < warnSpeechCeilingMS {
		result.Warning = "speech content was close to the minimum; consider a longer sample"
	}
	return result, nil
}

// EnrollFromMeeting implements enroll_from_meeting: it reuses an
// already-computed embedding from a MeetingSession rather than
// re-extracting from audio.
func (r *Registry) EnrollFromMeeting(ctx context.Context, name string, emb [entities.EmbeddingDim]float32) (EnrollResult, error) {
	if name == "" {
		return EnrollResult{}, apperrors.NewInvalidInput("name must not be empty")
	}
	return r.fold(ctx, name, emb, 1)
}

// fold applies the weighted-average/EMA update rule and persists the
// result, serialized per name.
func (r *Registry) fold(ctx context.Context, name string, vNew [entities.EmbeddingDim]float32, weight int) (EnrollResult, error) {
	unlock := r.locks.lock(name)
	defer unlock()

	vOld, meta, exists, err := r.store.Get(ctx, name)
	if err != nil {
		return EnrollResult{}, apperrors.NewInternal(err)
	}

	var vUpdated [entities.EmbeddingDim]float32
	var sampleCount int

	if !exists {
		vUpdated = normalizeCopy(vNew)
		sampleCount = weight
	} else if meta.SampleCount+1 <= EMAMinSamples {
		vUpdated = weightedAverage(vOld, meta.SampleCount, vNew, weight)
		sampleCount = meta.SampleCount + weight
	} else {
		vUpdated = ema(vOld, vNew)
		sampleCount = meta.SampleCount + 1
	}

	createdAt := meta.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	newMeta := vectorstore.Metadata{SampleCount: sampleCount, CreatedAt: createdAt}
	if err := r.store.Upsert(ctx, name, vUpdated, newMeta); err != nil {
		return EnrollResult{}, apperrors.NewInternal(err)
	}

	if err := r.mirror.set(name, sampleCount); err != nil {
		if r.logger != nil {
			r.logger.Warn("registry: mirror write failed, scheduling rebuild",
				zap.String("name", name), zap.Error(err))
		}
		go func() {
			if _, err := r.SyncFromStore(context.Background()); err != nil && r.logger != nil {
				r.logger.Warn("registry: mirror rebuild failed", zap.Error(err))
			}
		}()
	}

	return EnrollResult{SampleCount: sampleCount}, nil
}

// Delete removes name from the store and the local mirror. It returns a
// NotFound error if name is not enrolled.
func (r *Registry) Delete(ctx context.Context, name string) error {
	unlock := r.locks.lock(name)
	defer unlock()

	_, _, exists, err := r.store.Get(ctx, name)
	if err != nil {
		return apperrors.NewInternal(err)
	}
	if !exists {
		return apperrors.NewNotFound("speaker")
	}

	if err := r.store.Delete(ctx, name); err != nil {
		return apperrors.NewInternal(err)
	}
	if err := r.mirror.delete(name); err != nil && r.logger != nil {
		r.logger.Warn("registry: mirror delete failed", zap.String("name", name), zap.Error(err))
	}
	return nil
}

// SyncFromStore rebuilds the local mirror from the vector store, the
// source of truth. It is called once at startup and may be invoked again
// by the /speakers/sync endpoint.
func (r *Registry) SyncFromStore(ctx context.Context) (int, error) {
	all, err := r.store.ListAll(ctx)
	if err != nil {
		return 0, apperrors.NewInternal(err)
	}

	entries := make(map[string]mirrorEntry, len(all))
	for _, vp := range all {
		entries[vp.Name] = mirrorEntry{Samples: vp.SampleCount, UpdatedAt: time.Now()}
	}
	if err := r.mirror.replace(entries); err != nil {
		return 0, apperrors.NewInternal(err)
	}
	return len(all), nil
}

// List returns every enrolled name with its sample count, from the mirror.
func (r *Registry) List() map[string]int {
	r.mirror.mu.RLock()
	defer r.mirror.mu.RUnlock()
	out := make(map[string]int, len(r.mirror.data))
	for name, entry := range r.mirror.data {
		out[name] = entry.Samples
	}
	return out
}

// LoadMirror reads the on-disk mirror into memory without contacting the
// store, used during startup before SyncFromStore runs.
func (r *Registry) LoadMirror() error {
	return r.mirror.load()
}

func normalizeCopy(v [entities.EmbeddingDim]float32) [entities.EmbeddingDim]float32 {
	return vecmath.Normalize(v)
}

func weightedAverage(vOld [entities.EmbeddingDim]float32, nOld int, vNew [entities.EmbeddingDim]float32, weight int) [entities.EmbeddingDim]float32 {
	var combined [entities.EmbeddingDim]float32
	denom := float64(nOld + weight)
	for i := range combined {
		combined[i] = float32((float64(vOld[i])*float64(nOld) + float64(vNew[i])*float64(weight)) / denom)
	}
	return vecmath.Normalize(combined)
}

func ema(vOld, vNew [entities.EmbeddingDim]float32) [entities.EmbeddingDim]float32 {
	var combined [entities.EmbeddingDim]float32
	for i := range combined {
		combined[i] = float32((1-EMAAlpha)*float64(vOld[i]) + EMAAlpha*float64(vNew[i]))
	}
	return vecmath.Normalize(combined)
}
