//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

type Build mg.Namespace

// Compiles every GLSL stage under assets/shaders to SPIR-V next to its source.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the vkguard binary.
func (Build) Binary() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/vkguard", "."), withStream())
	return err
}

func buildShaders() error {
	for _, stage := range []string{"*.vert", "*.frag"} {
		sources, err := filepath.Glob(filepath.Join(shaderDir, stage))
		if err != nil {
			return err
		}
		for _, src := range sources {
			if _, err := executeCmd("glslc", withArgs(src, "-o", src+".spv"), withStream()); err != nil {
				return err
			}
		}
	}
	return nil
}
