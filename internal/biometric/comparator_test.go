package biometric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactComparator(t *testing.T) {
	live := Capture{Hash: "abc123"}

	assert.True(t, ExactComparator{}.Matches(live, Template{Hash: "abc123"}))
	assert.False(t, ExactComparator{}.Matches(live, Template{Hash: "abc124"}))
	assert.False(t, ExactComparator{}.Matches(live, Template{Hash: "abc1234"}))
}

func TestThresholdComparator(t *testing.T) {
	stored := Template{
		Geometry: []float64{0.5, 0.5, 0.5},
		Vascular: baseDescriptor(),
	}

	tests := []struct {
		name        string
		geometry    []float64
		maxDistance float64
		want        bool
	}{
		{
			name:        "identical features match at any threshold",
			geometry:    []float64{0.5, 0.5, 0.5},
			maxDistance: 0,
			want:        true,
		},
		{
			name:        "small drift within threshold",
			geometry:    []float64{0.51, 0.5, 0.5},
			maxDistance: 0.05,
			want:        true,
		},
		{
			name:        "drift beyond threshold",
			geometry:    []float64{0.8, 0.5, 0.5},
			maxDistance: 0.05,
			want:        false,
		},
		{
			name:        "mismatched vector lengths never match",
			geometry:    []float64{0.5, 0.5},
			maxDistance: 10,
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			live := Capture{Geometry: tt.geometry, Vascular: baseDescriptor()}
			cmp := ThresholdComparator{MaxDistance: tt.maxDistance}
			assert.Equal(t, tt.want, cmp.Matches(live, stored))
		})
	}
}

func TestMemoryTemplateStore(t *testing.T) {
	store := NewMemoryTemplateStore()

	_, err := store.Lookup("anchor-1")
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	tpl := Template{Hash: "deadbeef"}
	require.NoError(t, store.Register("anchor-1", tpl))

	got, err := store.Lookup("anchor-1")
	require.NoError(t, err)
	assert.Equal(t, tpl, got)

	assert.ErrorIs(t, store.Register("anchor-1", tpl), ErrAlreadyEnrolled)
}
