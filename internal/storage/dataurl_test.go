package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantCT  string
		wantExt string
		wantLen int
		wantErr bool
	}{
		{
			name:    "png",
			input:   "data:image/png;base64,aGVsbG8=",
			wantCT:  "image/png",
			wantExt: "png",
			wantLen: 5,
		},
		{
			name:    "jpeg with spaces",
			input:   "  data:image/jpeg;base64,aGk=  ",
			wantCT:  "image/jpeg",
			wantExt: "jpg",
			wantLen: 2,
		},
		{
			name:    "no content type",
			input:   "data:;base64,aGk=",
			wantCT:  "application/octet-stream",
			wantExt: "bin",
			wantLen: 2,
		},
		{
			name:    "plain url",
			input:   "https://example.com/proof.png",
			wantErr: true,
		},
		{
			name:    "not base64",
			input:   "data:text/plain,hello",
			wantErr: true,
		},
		{
			name:    "broken payload",
			input:   "data:image/png;base64,@@@",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDataURL(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDataURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCT, got.ContentType)
			assert.Equal(t, tt.wantExt, got.Extension())
			assert.Len(t, got.Data, tt.wantLen)
		})
	}
}

func TestObjectKey(t *testing.T) {
	assert.True(t, IsObjectKey("object:proofs/ORD-1.png"))
	assert.False(t, IsObjectKey("data:image/png;base64,aGk="))
	assert.Equal(t, "proofs/ORD-1.png", ObjectKey("object:proofs/ORD-1.png"))
}
