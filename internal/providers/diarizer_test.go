package providers

import "testing"

func TestAaiStringValueHandlesNil(t *testing.T) {
	if got := aaiStringValue(nil); got != "" {
		t.Fatalf("expected empty string for nil pointer, got %q", got)
	}
	s := "hello"
	if got := aaiStringValue(&s); got != "hello" {
		t.Fatalf("expected %q, got %q", "hello", got)
	}
}

func TestAaiInt64ValueHandlesNil(t *testing.T) {
	if got := aaiInt64Value(nil); got != 0 {
		t.Fatalf("expected 0 for nil pointer, got %d", got)
	}
	v := int64(42)
	if got := aaiInt64Value(&v); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}
