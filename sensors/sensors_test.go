package sensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimProbeRequiresConversion(t *testing.T) {
	p := NewSimProbe(1, 21.0)
	_, err := p.Temperature()
	require.Error(t, err)

	p.Convert()
	temp, err := p.Temperature()
	require.NoError(t, err)
	assert.InDelta(t, 21.0, temp, 1.0)
}

func TestSimProbeStaysNearBase(t *testing.T) {
	p := NewSimProbe(7, 20.0)
	for i := 0; i < 1000; i++ {
		p.Convert()
		temp, err := p.Temperature()
		require.NoError(t, err)
		assert.InDelta(t, 20.0, temp, 5.0)
	}
}

func TestSimPressureStaysNormalized(t *testing.T) {
	p := NewSimPressure(7)
	for i := 0; i < 1000; i++ {
		v := p.Read()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestDiscoverBoundsProbeCount(t *testing.T) {
	assert.Len(t, Discover(2), 1)
	assert.Empty(t, Discover(0))
}
