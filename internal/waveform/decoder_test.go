package waveform

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func putFloat32(buf []byte, offset int, v float32) {
	binary.LittleEndian.PutUint32(buf[offset:offset+4], math.Float32bits(v))
}

func TestDecode_PlantedFloatAmongZeros(t *testing.T) {
	// 12 zero bytes with one non-zero float planted at offset 4:
	// the all-zero padding groups are dropped, only the planted value survives
	buf := make([]byte, 12)
	putFloat32(buf, 4, 12.75)

	samples := Decode(buf)
	require.Len(t, samples, 1)
	require.InDelta(t, 12.75, samples[0], 1e-6)
}

func TestDecode_ShortTailDiscarded(t *testing.T) {
	buf := make([]byte, 11) // 2 full groups + 3 trailing bytes
	putFloat32(buf, 0, 1.5)
	putFloat32(buf, 4, 2.5)
	buf[8], buf[9], buf[10] = 0xFF, 0xFF, 0xFF

	samples := Decode(buf)
	require.Equal(t, []float64{1.5, 2.5}, samples)
}

func TestDecode_DropsNaNAndInf(t *testing.T) {
	buf := make([]byte, 16)
	putFloat32(buf, 0, 3.0)
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(float32(math.NaN())))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(float32(math.Inf(1))))
	putFloat32(buf, 12, -4.0)

	samples := Decode(buf)
	require.Equal(t, []float64{3.0, -4.0}, samples)
}

func TestDecode_NilAndShortInput(t *testing.T) {
	require.Empty(t, Decode(nil))
	require.Empty(t, Decode([]byte{}))
	require.Empty(t, Decode([]byte{1, 2, 3}))
}

func TestDecode_DeterministicAndBounded(t *testing.T) {
	buf := make([]byte, 40)
	for i := 0; i < 10; i++ {
		putFloat32(buf, i*4, float32(i)*0.5)
	}
	first := Decode(buf)
	second := Decode(buf)
	require.Equal(t, first, second)
	require.LessOrEqual(t, len(first), len(buf)/4)
}

func TestIsPlaceholder(t *testing.T) {
	require.True(t, IsPlaceholder([]byte{0, 0, 0, 0}))
	require.True(t, IsPlaceholder([]byte{0, 0}))
	require.False(t, IsPlaceholder(nil))
	require.False(t, IsPlaceholder([]byte{0, 0, 0, 1}))
	// longer all-zero buffers are real data (zero pressure), not placeholders
	require.False(t, IsPlaceholder(make([]byte, 8)))
}

func TestAveragePressure(t *testing.T) {
	require.Equal(t, 0.0, AveragePressure(nil))
	require.Equal(t, 0.0, AveragePressure([]byte{}))

	buf := make([]byte, 8)
	putFloat32(buf, 0, 10.0)
	putFloat32(buf, 4, 20.0)
	require.InDelta(t, 15.0, AveragePressure(buf), 1e-6)
}
