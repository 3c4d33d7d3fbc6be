// Package vectorstore implements C4 against MinIO, the object-storage
// client the teacher already ships, rather than a hosted vector database:
// each enrolled name is one small JSON object in a bucket, and query scores
// them in-process with the shared cosine routine. This keeps the public
// shape identical to the external vector index while reusing a storage
// client the teacher's stack already depends on.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
	"github.com/hoangtranvan/speaker-id-service/internal/vecmath"
	"github.com/hoangtranvan/speaker-id-service/pkg/config"
)

// Metadata is the sample-count bookkeeping attached to every stored vector.
type Metadata struct {
	SampleCount int       `json:"sample_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type record struct {
	Name      string                          `json:"name"`
	Embedding [entities.EmbeddingDim]float32  `json:"embedding"`
	Metadata  Metadata                        `json:"metadata"`
}

// Store is the C4 vector store adapter.
type Store struct {
	client *minio.Client
	bucket string
}

// New constructs a Store and ensures its backing bucket exists.
func New(cfg config.VectorStoreConfig) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: create client: %w", err)
	}

	s := &Store{client: client, bucket: cfg.BucketName}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("vectorstore: create bucket: %w", err)
		}
	}

	return s, nil
}

func objectKey(name string) string {
	return "voiceprints/" + name + ".json"
}

// Upsert replaces the prior record for name, if any.
func (s *Store) Upsert(ctx context.Context, name string, embedding [entities.EmbeddingDim]float32, meta Metadata) error {
	rec := record{Name: name, Embedding: embedding, Metadata: meta}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("vectorstore: marshal %s: %w", name, err)
	}
	_, err = s.client.PutObject(ctx, s.bucket, objectKey(name), bytes.NewReader(b), int64(len(b)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("vectorstore: upsert %s: %w", name, err)
	}
	return nil
}

// Get fetches the vector and metadata for name. It returns (zero, zero,
// false, nil) if name does not exist.
func (s *Store) Get(ctx context.Context, name string) ([entities.EmbeddingDim]float32, Metadata, bool, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(name), minio.GetObjectOptions{})
	if err != nil {
		return [entities.EmbeddingDim]float32{}, Metadata{}, false, fmt.Errorf("vectorstore: get %s: %w", name, err)
	}
	defer obj.Close()

	b, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return [entities.EmbeddingDim]float32{}, Metadata{}, false, nil
		}
		return [entities.EmbeddingDim]float32{}, Metadata{}, false, fmt.Errorf("vectorstore: read %s: %w", name, err)
	}

	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		return [entities.EmbeddingDim]float32{}, Metadata{}, false, fmt.Errorf("vectorstore: decode %s: %w", name, err)
	}
	return rec.Embedding, rec.Metadata, true, nil
}

// Delete removes name from the store. It is not an error if name is absent.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey(name), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("vectorstore: delete %s: %w", name, err)
	}
	return nil
}

// Query returns the top-k neighbors of vector by cosine similarity,
// sorted descending.
func (s *Store) Query(ctx context.Context, vector [entities.EmbeddingDim]float32, k int) ([]entities.Candidate, error) {
	all, err := s.listRecords(ctx)
	if err != nil {
		return nil, err
	}

	q := vecmath.ToFloat64(vector)
	candidates := make([]entities.Candidate, 0, len(all))
	for _, rec := range all {
		score := vecmath.Cosine(q, vecmath.ToFloat64(rec.Embedding))
		candidates = append(candidates, entities.Candidate{Name: rec.Name, Score: score})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if k < len(candidates) {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// ListAll returns every enrolled name with its metadata.
func (s *Store) ListAll(ctx context.Context) ([]entities.Voiceprint, error) {
	all, err := s.listRecords(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entities.Voiceprint, 0, len(all))
	for _, rec := range all {
		out = append(out, entities.Voiceprint{
			Name:        rec.Name,
			Embedding:   rec.Embedding,
			SampleCount: rec.Metadata.SampleCount,
			CreatedAt:   rec.Metadata.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) listRecords(ctx context.Context) ([]record, error) {
	var out []record
	objCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    "voiceprints/",
		Recursive: true,
	})
	for obj := range objCh {
		if obj.Err != nil {
			return nil, fmt.Errorf("vectorstore: list: %w", obj.Err)
		}
		r, err := s.client.GetObject(ctx, s.bucket, obj.Key, minio.GetObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("vectorstore: fetch %s: %w", obj.Key, err)
		}
		b, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("vectorstore: read %s: %w", obj.Key, err)
		}
		var rec record
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, fmt.Errorf("vectorstore: decode %s: %w", obj.Key, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject"
}
