package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatPairsValueAndScan(t *testing.T) {
	series := FloatPairs{{0, 0.12}, {0.01, -0.3}, {0.02, 142.7}}

	v, err := series.Value()
	require.NoError(t, err)

	var got FloatPairs
	require.NoError(t, got.Scan(v))
	assert.Equal(t, series, got)
}

func TestFloatPairsValueEmpty(t *testing.T) {
	v, err := FloatPairs{}.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestFloatPairsScan(t *testing.T) {
	var f FloatPairs

	require.NoError(t, f.Scan(nil))
	assert.Empty(t, f)

	require.NoError(t, f.Scan([]byte(`[[0,1.5]]`)))
	assert.Equal(t, FloatPairs{{0, 1.5}}, f)

	require.NoError(t, f.Scan(`[[2,3]]`))
	assert.Equal(t, FloatPairs{{2, 3}}, f)

	assert.Error(t, f.Scan(42))
	assert.Error(t, f.Scan("not json"))
}
