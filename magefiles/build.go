//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

var shaderSources = []string{"shader.vert", "shader.frag"}

type Build mg.Namespace

// Shaders compiles the GLSL sources to SPIR-V next to them.
func (Build) Shaders() error {
	for _, src := range shaderSources {
		in := filepath.Join(shaderDir, src)
		out := in + ".spv"
		if fresh, err := upToDate(in, out); err != nil {
			return err
		} else if fresh {
			continue
		}
		if _, err := executeCmd("glslc", withArgs(in, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Binary builds the vkframe executable into bin/.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/vkframe", "."), withStream())
	return err
}

// upToDate reports whether out exists and is newer than in.
func upToDate(in, out string) (bool, error) {
	src, err := os.Stat(in)
	if err != nil {
		return false, fmt.Errorf("shader source: %w", err)
	}
	dst, err := os.Stat(out)
	if err != nil {
		return false, nil
	}
	return dst.ModTime().After(src.ModTime()), nil
}
