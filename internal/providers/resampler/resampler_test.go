package resampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResampleIsNoopWhenRatesMatch(t *testing.T) {
	r := New()
	in := []byte{1, 2, 3, 4}
	out, err := r.Resample(in, 16000, 16000)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestResampleRejectsNonPositiveRates(t *testing.T) {
	r := New()
	_, err := r.Resample([]byte{1, 2}, 0, 16000)
	assert.Error(t, err)
}

func TestResampleIsNoopForEmptyInput(t *testing.T) {
	r := New()
	out, err := r.Resample(nil, 16000, 24000)
	require.NoError(t, err)
	assert.Empty(t, out)
}
