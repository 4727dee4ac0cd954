package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseComputeEntryPoints(t *testing.T) {
	source := `
@compute @workgroup_size(16, 16)
fn advect(@builtin(global_invocation_id) gid: vec3<u32>) {}

@compute @workgroup_size(16, 16)
fn project(@builtin(global_invocation_id) gid: vec3<u32>) {}

@compute @workgroup_size(16, 16)
fn present(@builtin(global_invocation_id) gid: vec3<u32>) {}
`
	assert.Equal(t, []string{"advect", "project", "present"}, ParseComputeEntryPoints(source))
}

func TestParseComputeEntryPointsIgnoresComments(t *testing.T) {
	source := `
// @compute @workgroup_size(8, 8)
// fn disabled(@builtin(global_invocation_id) gid: vec3<u32>) {}

@compute @workgroup_size(8, 8)
fn live(@builtin(global_invocation_id) gid: vec3<u32>) {}
`
	assert.Equal(t, []string{"live"}, ParseComputeEntryPoints(source))
}

func TestParseComputeEntryPointsNone(t *testing.T) {
	assert.Nil(t, ParseComputeEntryPoints("fn helper() -> f32 { return 0.0; }"))
}

func TestParseWorkgroupSize(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   [3]uint32
	}{
		{
			name:   "all three dimensions",
			source: "@compute @workgroup_size(8, 4, 2)\nfn main() {}",
			want:   [3]uint32{8, 4, 2},
		},
		{
			name:   "two dimensions",
			source: "@compute @workgroup_size(16, 16)\nfn main() {}",
			want:   [3]uint32{16, 16, 1},
		},
		{
			name:   "one dimension",
			source: "@compute @workgroup_size(64)\nfn main() {}",
			want:   [3]uint32{64, 1, 1},
		},
		{
			name:   "no annotation",
			source: "fn main() {}",
			want:   [3]uint32{1, 1, 1},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, ParseWorkgroupSize(test.source))
		})
	}
}
