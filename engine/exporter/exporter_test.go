package exporter

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToRGBAPassthrough(t *testing.T) {
	data := []byte{
		10, 20, 30, 255,
		40, 50, 60, 128,
	}
	img, err := convertToRGBA(data, 2, 1, wgpu.TextureFormatRGBA8UnormSrgb)
	require.NoError(t, err)
	assert.Equal(t, data, img.Pix)
}

func TestConvertToRGBASwapsBGRA(t *testing.T) {
	data := []byte{30, 20, 10, 255}
	img, err := convertToRGBA(data, 1, 1, wgpu.TextureFormatBGRA8UnormSrgb)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 20, 30, 255}, img.Pix)
}

func TestConvertToRGBAFloat32(t *testing.T) {
	data := make([]byte, 16)
	for i, v := range []float32{0.0, 0.5, 1.0, 2.0} {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	img, err := convertToRGBA(data, 1, 1, wgpu.TextureFormatRGBA32Float)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 128, 255, 255}, img.Pix)
}

func TestConvertToRGBAHalfFloat(t *testing.T) {
	// 0.0, 0.5, 1.0, 1.0 as IEEE 754 half values
	halves := []uint16{0x0000, 0x3800, 0x3C00, 0x3C00}
	data := make([]byte, 8)
	for i, h := range halves {
		binary.LittleEndian.PutUint16(data[i*2:], h)
	}
	img, err := convertToRGBA(data, 1, 1, wgpu.TextureFormatRGBA16Float)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 128, 255, 255}, img.Pix)
}

func TestConvertToRGBAShortData(t *testing.T) {
	_, err := convertToRGBA([]byte{1, 2, 3}, 2, 2, wgpu.TextureFormatRGBA8Unorm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestConvertToRGBAUnsupportedFormat(t *testing.T) {
	_, err := convertToRGBA(nil, 1, 1, wgpu.TextureFormatR8Unorm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestQuantize(t *testing.T) {
	assert.Equal(t, uint8(0), quantize(float32(math.NaN())))
	assert.Equal(t, uint8(0), quantize(-0.5))
	assert.Equal(t, uint8(0), quantize(0))
	assert.Equal(t, uint8(128), quantize(0.5))
	assert.Equal(t, uint8(255), quantize(1))
	assert.Equal(t, uint8(255), quantize(10))
}

func TestHalfToFloat(t *testing.T) {
	assert.Equal(t, float32(0), halfToFloat(0x0000))
	assert.Equal(t, float32(1), halfToFloat(0x3C00))
	assert.Equal(t, float32(0.5), halfToFloat(0x3800))
	assert.Equal(t, float32(-2), halfToFloat(0xC000))
	assert.Equal(t, float32(65504), halfToFloat(0x7BFF))

	// smallest positive subnormal half
	assert.InDelta(t, 5.9604645e-8, float64(halfToFloat(0x0001)), 1e-12)

	assert.True(t, math.IsInf(float64(halfToFloat(0x7C00)), 1))
	assert.True(t, math.IsNaN(float64(halfToFloat(0x7E00))))
}

func TestNewExporterRequiresProgram(t *testing.T) {
	_, err := NewExporter(nil, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a program")
}
