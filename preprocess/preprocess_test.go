package preprocess

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/kbukum/npuflow/errors"
)

func TestRowStride(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		want   int
	}{
		{"unaligned", Layout{Width: 5, Height: 1, Channels: 3}, 15},
		{"align one", Layout{Width: 5, Height: 1, Channels: 3, Align: 1}, 15},
		{"rounded up", Layout{Width: 5, Height: 1, Channels: 3, Align: 64}, 64},
		{"already aligned", Layout{Width: 64, Height: 1, Channels: 1, Align: 64}, 64},
		{"imagenet rgb", Layout{Width: 224, Height: 224, Channels: 3, Align: 64}, 704},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.layout.RowStride(); got != tc.want {
				t.Errorf("RowStride = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestPackPadsRows(t *testing.T) {
	l := Layout{Width: 2, Height: 2, Channels: 1, Align: 4}
	got, err := l.Pack([]byte{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{1, 2, 0, 0, 3, 4, 0, 0}; !slices.Equal(got, want) {
		t.Errorf("Pack = %v, want %v", got, want)
	}
	if _, err := l.Pack([]byte{1}); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for short frame, got %v", err)
	}
}

func TestRawFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.rgb")
	if err := os.WriteFile(path, []byte{10, 20, 30, 40, 50, 60}, 0o644); err != nil {
		t.Fatal(err)
	}
	var p Preprocessor = RawFrame{Layout: Layout{Width: 2, Height: 1, Channels: 3, Align: 8}, SwapRB: true}
	got, err := p.ToBytes(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{30, 20, 10, 60, 50, 40, 0, 0}; !slices.Equal(got, want) {
		t.Errorf("ToBytes = %v, want %v", got, want)
	}
	if _, err := p.ToBytes(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLayoutDefaultsAndValidate(t *testing.T) {
	var l Layout
	l.ApplyDefaults()
	if err := l.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if l.PackedBytes() != 224*224*3 {
		t.Errorf("packed bytes = %d", l.PackedBytes())
	}
	l.Channels = 5
	if err := l.Validate(); err == nil {
		t.Error("expected error for 5 channels")
	}
}
