package pagination_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftwish/giftwish/internal/pagination"
)

func TestCursorRoundTrip(t *testing.T) {
	cursor := pagination.Cursor{
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		ID:        "01J0000000000000000000FAKE",
	}

	decoded, err := pagination.Decode(cursor.Encode())
	require.NoError(t, err)
	assert.True(t, cursor.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, cursor.ID, decoded.ID)
}

func TestDecodeRejectsMalformedCursor(t *testing.T) {
	for _, encoded := range []string{"not base64!!", "aGVsbG8=", "e30="} {
		_, err := pagination.Decode(encoded)
		assert.Error(t, err, encoded)
	}
}

func TestNormalizeLimit(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero uses default", 0, pagination.DefaultLimit},
		{"negative uses default", -5, pagination.DefaultLimit},
		{"in range passes through", 25, 25},
		{"above max clamps", 5000, pagination.MaxLimit},
		{"one is allowed", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pagination.NormalizeLimit(tt.in))
		})
	}
}
