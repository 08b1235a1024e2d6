package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPhotoObjectName(t *testing.T) {
	ownerID := uuid.New()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filename string
		wantExt  string
	}{
		{"lowercases the extension", "Portrait.JPG", ".jpg"},
		{"keeps png", "me.png", ".png"},
		{"no extension", "photo", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := photoObjectName(ownerID, tt.filename, now)
			want := fmt.Sprintf("users/%s/%d%s", ownerID, now.UnixMilli(), tt.wantExt)
			assert.Equal(t, want, got)
		})
	}
}
