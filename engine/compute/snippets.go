package compute

// WGSL snippet sources injected by the pre-processor. The struct layouts here
// must match the Go-side uniform structs in uniforms.go byte for byte.

// wgslGlobalsSource declares the always-present group 0 time uniform.
const wgslGlobalsSource = `struct Globals {
    time: f32,
    delta: f32,
    frame: u32,
    pad0: u32,
};
@group(0) @binding(0) var<uniform> globals: Globals;`

// wgslMouseSource declares the mouse uniform struct. pos carries normalized
// [0, 1] surface coordinates, origin top-left, so kernels compare it against
// UVs directly. The kernel author binds the struct at the extras group derived
// for their config.
const wgslMouseSource = `struct Mouse {
    pos: vec2<f32>,
    buttons: u32,
    pad0: u32,
};`

// wgslAccumulationSource provides the cell addressing helper shared by scatter
// and gather passes over the atomic accumulation buffer.
const wgslAccumulationSource = `fn cell_index(pos: vec2<u32>, dims: vec2<u32>, plane: u32, planes: u32) -> u32 {
    let clamped = min(pos, dims - vec2<u32>(1u, 1u));
    return (clamped.y * dims.x + clamped.x) * planes + plane;
}`

// wgslTonemapSource provides the logarithmic tone-map used by gather passes to
// normalize accumulated counts into displayable intensity.
const wgslTonemapSource = `fn tonemap_log(count: u32, max_count: f32) -> f32 {
    if (count == 0u) {
        return 0.0;
    }
    return log(1.0 + f32(count)) / log(1.0 + max(max_count, 1.0));
}`
