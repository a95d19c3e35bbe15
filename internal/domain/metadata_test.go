package domain

import (
	"strings"
	"testing"
)

func TestValidateMetadataOK(t *testing.T) {
	meta := map[string]any{
		"project": "apollo",
		"count":   float64(42),
		"active":  true,
		"tags":    []string{"a", "b"},
		"note":    nil,
	}
	if err := ValidateMetadata(meta); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateMetadataTooManyKeys(t *testing.T) {
	meta := make(map[string]any, MaxMetadataKeys+1)
	for i := 0; i < MaxMetadataKeys+1; i++ {
		meta[strings.Repeat("k", i+1)] = "v"
	}
	if err := ValidateMetadata(meta); err == nil {
		t.Fatalf("expected error for too many keys")
	}
}

func TestValidateMetadataKeyTooLong(t *testing.T) {
	meta := map[string]any{strings.Repeat("k", MaxMetadataKeyLength+1): "v"}
	if err := ValidateMetadata(meta); err == nil {
		t.Fatalf("expected error for oversized key")
	}
}

func TestValidateMetadataValueTooLong(t *testing.T) {
	meta := map[string]any{"note": strings.Repeat("x", MaxMetadataStringValue+1)}
	if err := ValidateMetadata(meta); err == nil {
		t.Fatalf("expected error for oversized string value")
	}
}

func TestValidateMetadataUnsupportedType(t *testing.T) {
	meta := map[string]any{"bad": struct{}{}}
	if err := ValidateMetadata(meta); err == nil {
		t.Fatalf("expected error for unsupported value type")
	}
}
