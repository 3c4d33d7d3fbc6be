package vectorstore

import (
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestObjectKeyNamespacesUnderVoiceprints(t *testing.T) {
	got := objectKey("alice")
	want := "voiceprints/alice.json"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestIsNotFoundRecognizesMinioErrorCodes(t *testing.T) {
	err := minio.ErrorResponse{Code: "NoSuchKey"}
	if !isNotFound(err) {
		t.Fatalf("expected NoSuchKey to be recognized as not-found")
	}
}

func TestIsNotFoundRejectsUnrelatedErrors(t *testing.T) {
	if isNotFound(errors.New("boom")) {
		t.Fatalf("expected an unrelated error not to be classified as not-found")
	}
}
