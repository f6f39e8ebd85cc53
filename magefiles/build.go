//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const shaderDir = "shaders"

type Build mg.Namespace

// Compiles every GLSL stage under shaders/ to <Name>.<stage>.spv with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the shaders and builds the ashen binary.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/ashen", "."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	sources, err := shaderSources(shaderDir)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Printf("No shader sources found in %s\n", shaderDir)
		return nil
	}
	for _, src := range sources {
		if _, err := executeCmd("glslc", withArgs(src, "-o", src+".spv"), withStream()); err != nil {
			return err
		}
	}
	return nil
}

func shaderSources(dir string) ([]string, error) {
	var sources []string
	for _, ext := range []string{"*.vert", "*.frag"} {
		matches, err := filepath.Glob(filepath.Join(dir, ext))
		if err != nil {
			return nil, err
		}
		sources = append(sources, matches...)
	}
	return sources, nil
}
