package compute

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// readbackRowAlignment is the required BytesPerRow alignment for
// texture-to-buffer copies.
const readbackRowAlignment = 256

// formatBytesPerPixel returns the per-pixel byte size of the texture formats
// supported as program output.
func formatBytesPerPixel(format wgpu.TextureFormat) (uint32, error) {
	switch format {
	case wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb,
		wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb:
		return 4, nil
	case wgpu.TextureFormatRGBA16Float:
		return 8, nil
	case wgpu.TextureFormatRGBA32Float:
		return 16, nil
	default:
		return 0, fmt.Errorf("unsupported read-back format %v", format)
	}
}

// paddedBytesPerRow rounds a row byte size up to the copy alignment.
func paddedBytesPerRow(unpadded uint32) uint32 {
	return (unpadded + readbackRowAlignment - 1) / readbackRowAlignment * readbackRowAlignment
}

// readbackTexture copies a texture into a host-visible staging buffer and
// blocks until the copy completes. The returned pixels are tightly packed with
// the copy alignment padding stripped. This is the one deliberately synchronous
// operation in the package; export is not a latency-sensitive path.
//
// Parameters:
//   - device: the GPU device
//   - queue: the device queue
//   - tex: the source texture, created with CopySrc usage
//   - width: texture width in pixels
//   - height: texture height in pixels
//   - format: the texture format
//
// Returns:
//   - []byte: tightly packed pixel rows, width*height*bytesPerPixel long
//   - error: an error if the format is unsupported or any GPU step fails
func readbackTexture(device *wgpu.Device, queue *wgpu.Queue, tex *wgpu.Texture, width, height int, format wgpu.TextureFormat) ([]byte, error) {
	bpp, err := formatBytesPerPixel(format)
	if err != nil {
		return nil, err
	}
	unpadded := uint32(width) * bpp
	padded := paddedBytesPerRow(unpadded)
	stagingSize := uint64(padded) * uint64(height)

	staging, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Read-Back Staging Buffer",
		Size:  stagingSize,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("create read-back staging buffer: %w", err)
	}
	defer staging.Release()

	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create read-back command encoder: %w", err)
	}
	defer encoder.Release()

	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: staging,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  padded,
				RowsPerImage: uint32(height),
			},
		},
		&wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
	)

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish read-back encoder: %w", err)
	}
	defer cmd.Release()
	queue.Submit(cmd)

	mapStatus := wgpu.BufferMapAsyncStatusUnknown
	if err := staging.MapAsync(wgpu.MapModeRead, 0, stagingSize, func(status wgpu.BufferMapAsyncStatus) {
		mapStatus = status
	}); err != nil {
		return nil, fmt.Errorf("map read-back staging buffer: %w", err)
	}
	device.Poll(true, nil)
	if mapStatus != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("read-back buffer map finished with status %v", mapStatus)
	}
	defer staging.Unmap()

	mapped := staging.GetMappedRange(0, uint(stagingSize))
	out := make([]byte, uint64(unpadded)*uint64(height))
	for row := 0; row < height; row++ {
		src := uint64(row) * uint64(padded)
		dst := uint64(row) * uint64(unpadded)
		copy(out[dst:dst+uint64(unpadded)], mapped[src:src+uint64(unpadded)])
	}
	return out, nil
}

// readbackBuffer copies a GPU buffer into host memory and blocks until the
// copy completes. Used for storage and atomic buffer inspection.
//
// Parameters:
//   - device: the GPU device
//   - queue: the device queue
//   - src: the source buffer, created with CopySrc usage
//   - size: the byte count to read from offset 0
//
// Returns:
//   - []byte: the buffer contents
//   - error: an error if any GPU step fails
func readbackBuffer(device *wgpu.Device, queue *wgpu.Queue, src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Buffer Read-Back Staging",
		Size:  size,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer read-back staging: %w", err)
	}
	defer staging.Release()

	encoder, err := device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create buffer read-back encoder: %w", err)
	}
	defer encoder.Release()
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish buffer read-back encoder: %w", err)
	}
	defer cmd.Release()
	queue.Submit(cmd)

	mapStatus := wgpu.BufferMapAsyncStatusUnknown
	if err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		mapStatus = status
	}); err != nil {
		return nil, fmt.Errorf("map buffer read-back staging: %w", err)
	}
	device.Poll(true, nil)
	if mapStatus != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("buffer read-back map finished with status %v", mapStatus)
	}
	defer staging.Unmap()

	out := make([]byte, size)
	copy(out, staging.GetMappedRange(0, uint(size)))
	return out, nil
}
