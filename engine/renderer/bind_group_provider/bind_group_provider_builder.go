package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBindGroup pre-seeds the provider with an already-created bind group.
// Providers initialized through Renderer.InitBindGroup do not need this.
//
// Parameters:
//   - bg: the bind group to store
//
// Returns:
//   - BindGroupProviderOption: a function that stores the bind group on the provider
func WithBindGroup(bg *wgpu.BindGroup) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroup = bg
	}
}

// WithBindGroupLayout pre-seeds the provider with an already-created bind group
// layout. Renderer.InitBindGroup reuses a pre-seeded layout instead of creating
// one from the descriptor.
//
// Parameters:
//   - bgl: the bind group layout to store
//
// Returns:
//   - BindGroupProviderOption: a function that stores the layout on the provider
func WithBindGroupLayout(bgl *wgpu.BindGroupLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroupLayout = bgl
	}
}

// WithBuffer pre-seeds a buffer at a specific binding index.
// Renderer.InitBindGroup skips buffer creation for bindings that already hold one.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer to store
//
// Returns:
//   - BindGroupProviderOption: a function that stores the buffer at the binding
func WithBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}

// WithBuffers pre-seeds every buffer at once from a map of binding indices to buffers.
//
// Parameters:
//   - buffers: buffers keyed by binding index
//
// Returns:
//   - BindGroupProviderOption: a function that replaces the provider's buffers
func WithBuffers(buffers map[int]*wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers = buffers
	}
}

// WithTextureView pre-seeds a texture view at a specific binding index, for
// hosts that create textures themselves instead of going through
// Renderer.InitTextureView.
//
// Parameters:
//   - binding: the binding index for this texture view
//   - tv: the texture view to store
//
// Returns:
//   - BindGroupProviderOption: a function that stores the texture view at the binding
func WithTextureView(binding int, tv *wgpu.TextureView) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.textureViews[binding] = tv
	}
}

// WithSampler pre-seeds a sampler at a specific binding index, for hosts that
// create samplers themselves instead of going through Renderer.InitSampler.
//
// Parameters:
//   - binding: the binding index for this sampler
//   - s: the sampler to store
//
// Returns:
//   - BindGroupProviderOption: a function that stores the sampler at the binding
func WithSampler(binding int, s *wgpu.Sampler) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.samplers[binding] = s
	}
}
