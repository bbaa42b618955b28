package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, uint32(5), Clamp(uint32(2), 5, 10))
	assert.Equal(t, uint32(10), Clamp(uint32(20), 5, 10))
	assert.Equal(t, uint32(7), Clamp(uint32(7), 5, 10))
	assert.Equal(t, 0.5, Clamp(0.5, 0.0, 1.0))
	assert.Equal(t, 1.0, Clamp(3.0, 0.0, 1.0))
}

func TestMipLevels(t *testing.T) {
	cases := map[[2]uint32]uint32{
		{0, 0}:      0,
		{1, 1}:      1,
		{2, 1}:      2,
		{256, 256}:  9,
		{512, 128}:  10,
		{300, 200}:  9,
		{1024, 768}: 11,
	}
	for size, want := range cases {
		assert.Equal(t, want, MipLevels(size[0], size[1]), "size %v", size)
	}
}

func TestHalveDimension(t *testing.T) {
	assert.Equal(t, int32(128), HalveDimension(int32(256)))
	assert.Equal(t, int32(1), HalveDimension(int32(1)))
	assert.Equal(t, uint32(1), HalveDimension(uint32(0)))
}
