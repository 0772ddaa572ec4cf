package core

import (
	"errors"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document",
			doc:     &Document{Content: "Hello world", Metadata: Metadata{"source": "a.txt", "line": 3}},
			wantErr: nil,
		},
		{
			name:    "valid document without metadata",
			doc:     &Document{Content: "Hello world"},
			wantErr: nil,
		},
		{
			name:    "all scalar types",
			doc:     &Document{Content: "x", Metadata: Metadata{"s": "a", "b": true, "i": 1, "i64": int64(2), "f": 1.5}},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "empty content",
			doc:     &Document{Content: ""},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "whitespace content",
			doc:     &Document{Content: " \t\n"},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "non scalar metadata",
			doc:     &Document{Content: "x", Metadata: Metadata{"tags": []string{"a"}}},
			wantErr: ErrInvalidMetadata,
		},
		{
			name:    "empty metadata key",
			doc:     &Document{Content: "x", Metadata: Metadata{"": "a"}},
			wantErr: ErrInvalidMetadata,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("ValidateDocument() error = %v, should wrap ErrInvalidDocument", err)
			}
		})
	}
}

func TestIsScalar(t *testing.T) {
	scalars := []any{"a", true, 1, int64(1), 1.0}
	for _, v := range scalars {
		if !IsScalar(v) {
			t.Errorf("IsScalar(%v) = false, want true", v)
		}
	}

	nonScalars := []any{nil, []int{1}, map[string]string{}, float32(1), struct{}{}}
	for _, v := range nonScalars {
		if IsScalar(v) {
			t.Errorf("IsScalar(%v) = true, want false", v)
		}
	}
}
