package common

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(1, 0, color.RGBA{0, 255, 0, 255})
	img.Set(0, 1, color.RGBA{0, 0, 255, 255})
	img.Set(1, 1, color.RGBA{255, 255, 255, 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestChannelImageDecodeFromData(t *testing.T) {
	ci := &ChannelImage{Name: "test", Data: encodeTestPNG(t)}

	pixels, width, height, err := ci.Decode()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), width)
	assert.Equal(t, uint32(2), height)
	assert.Len(t, pixels, 2*2*4)
	assert.Equal(t, []byte{255, 0, 0, 255}, pixels[:4])
	assert.Equal(t, 2, ci.Width)
	assert.Equal(t, 2, ci.Height)
}

func TestChannelImageDecodeFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.png")
	require.NoError(t, os.WriteFile(path, encodeTestPNG(t), 0o644))

	ci := &ChannelImage{Name: "test", Path: path}
	pixels, width, height, err := ci.Decode()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), width)
	assert.Equal(t, uint32(2), height)
	assert.Len(t, pixels, 16)
}

func TestChannelImageDecodeErrors(t *testing.T) {
	var nilImage *ChannelImage
	_, _, _, err := nilImage.Decode()
	require.Error(t, err)

	_, _, _, err = (&ChannelImage{Name: "empty"}).Decode()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither data nor path")

	_, _, _, err = (&ChannelImage{Name: "garbage", Data: []byte{1, 2, 3}}).Decode()
	require.Error(t, err)
}
