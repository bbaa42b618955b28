package vulkan

import (
	"os"
	"path/filepath"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkframe/engine/renderer/present"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCullModeFlags(t *testing.T) {
	assert.Equal(t, vk.CullModeFlags(vk.CullModeNone), cullModeFlags(FaceCullModeNone))
	assert.Equal(t, vk.CullModeFlags(vk.CullModeFrontBit), cullModeFlags(FaceCullModeFront))
	assert.Equal(t, vk.CullModeFlags(vk.CullModeBackBit), cullModeFlags(FaceCullModeBack))
	assert.Equal(t, vk.CullModeFlags(vk.CullModeFrontAndBack), cullModeFlags(FaceCullModeFrontAndBack))
	assert.Equal(t, vk.CullModeFlags(vk.CullModeBackBit), cullModeFlags(FaceCullMode(42)))
}

func TestVertexLayoutDescriptions(t *testing.T) {
	layout := VertexLayout{
		Stride: 32,
		Attributes: []VertexAttribute{
			{Location: 0, Format: present.FormatR32G32B32Sfloat, Offset: 0},
			{Location: 1, Format: present.FormatR32G32B32Sfloat, Offset: 12},
			{Location: 2, Format: present.FormatR32G32Sfloat, Offset: 24},
		},
	}

	got := layout.descriptions()
	assert.Len(t, got, 3)
	assert.Equal(t, vk.FormatR32g32b32Sfloat, got[0].Format)
	assert.Equal(t, vk.FormatR32g32Sfloat, got[2].Format)
	assert.Equal(t, uint32(24), got[2].Offset)
	for i, d := range got {
		assert.Equal(t, uint32(i), d.Location)
		assert.Zero(t, d.Binding)
	}
}

func writeShaders(t *testing.T, dir string, vertex, fragment []byte) PipelineOptions {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shader.vert.spv"), vertex, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shader.frag.spv"), fragment, 0o644))
	return PipelineOptions{ShaderDir: dir, VertexShader: "shader.vert.spv", FragmentShader: "shader.frag.spv"}
}

func TestReloadKeepsShadersWhenFilesAreBroken(t *testing.T) {
	dir := t.TempDir()
	opts := writeShaders(t, dir, spirvWords(spirvMagic, 1, 0, 1, 0), spirvWords(spirvMagic, 1, 0, 2, 0))
	sources, err := readShaderSources(opts)
	require.NoError(t, err)
	g := &GraphicsPipelines{opts: opts, sources: sources}

	// glslc has only flushed part of the new vertex shader
	writeShaders(t, dir, spirvWords(spirvMagic, 1), spirvWords(spirvMagic, 1, 0, 2, 0))
	err = g.Reload()
	assert.ErrorIs(t, err, ErrInvalidSPIRV)
	assert.Same(t, sources, g.sources)

	require.NoError(t, os.Remove(filepath.Join(dir, "shader.frag.spv")))
	assert.ErrorIs(t, g.Reload(), os.ErrNotExist)
	assert.Same(t, sources, g.sources)
}

func TestReloadAndRevert(t *testing.T) {
	dir := t.TempDir()
	opts := writeShaders(t, dir, spirvWords(spirvMagic, 1, 0, 1, 0), spirvWords(spirvMagic, 1, 0, 2, 0))
	sources, err := readShaderSources(opts)
	require.NoError(t, err)
	g := &GraphicsPipelines{opts: opts, sources: sources}

	writeShaders(t, dir, spirvWords(spirvMagic, 1, 0, 3, 0), spirvWords(spirvMagic, 1, 0, 4, 0))
	require.NoError(t, g.Reload())
	assert.Equal(t, uint32(3), g.sources.vertex[3])
	assert.Equal(t, uint32(4), g.sources.fragment[3])

	g.Revert()
	assert.Same(t, sources, g.sources)
	// a second revert has nothing to go back to
	g.Revert()
	assert.Same(t, sources, g.sources)
}
