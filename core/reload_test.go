// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"testing"

	"github.com/cockroachdb/errors"
	qt "github.com/frankban/quicktest"
	vk "github.com/vulkan-go/vulkan"
)

type recordingShader struct {
	name      string
	destroyed int
}

func (s *recordingShader) Destroy()                  { s.destroyed++ }
func (s *recordingShader) Type() ShaderType          { return ShaderTypeFromPath(s.name) }
func (s *recordingShader) Name() string              { return s.name }
func (s *recordingShader) ShaderModule() interface{} { return nil }

type scriptedStages struct {
	loaded      []Shader
	loadErr     error
	pipelineErr error
	recordErr   error

	built    [][]Shader
	retired  [][]Shader
	recorded int
}

func (s *scriptedStages) loadShaders(vert, frag []byte) ([]Shader, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.loaded, nil
}

func (s *scriptedStages) buildPipeline(shaders []Shader) (vk.Pipeline, error) {
	s.built = append(s.built, shaders)
	return vk.NullPipeline, s.pipelineErr
}

func (s *scriptedStages) retirePipeline(_ vk.Pipeline, shaders []Shader) {
	s.retired = append(s.retired, shaders)
}

func (s *scriptedStages) buildCommandBuffers() error {
	s.recorded++
	return s.recordErr
}

func shaderPair(prefix string) (*recordingShader, *recordingShader) {
	return &recordingShader{name: prefix + ".vert"}, &recordingShader{name: prefix + ".frag"}
}

func TestReloadShadersKeepsPipelineWhenBuildFails(t *testing.T) {
	c := qt.New(t)
	oldVert, oldFrag := shaderPair("old")
	newVert, newFrag := shaderPair("new")
	stages := &scriptedStages{
		loaded:      []Shader{newVert, newFrag},
		pipelineErr: errors.New("vk.CreateGraphicsPipelines(): error VK_ERROR_INVALID_SHADER_NV"),
	}
	v := &VulkanRenderer{
		shaders: []Shader{oldVert, oldFrag},
		data:    SceneData{VertexShader: []byte("old vert"), FragmentShader: []byte("old frag")},
		stages:  stages,
	}

	err := v.ReloadShaders([]byte("new vert"), []byte("new frag"))
	c.Assert(err, qt.ErrorMatches, "vk.CreateGraphicsPipelines.*")
	c.Assert(errors.Is(err, ErrShadersRejected), qt.IsTrue)

	c.Assert(stages.built, qt.HasLen, 1)
	c.Assert(stages.retired, qt.HasLen, 0)
	c.Assert(stages.recorded, qt.Equals, 0)

	c.Assert(v.shaders, qt.HasLen, 2)
	c.Assert(v.shaders[0], qt.Equals, Shader(oldVert))
	c.Assert(v.shaders[1], qt.Equals, Shader(oldFrag))
	c.Assert(oldVert.destroyed+oldFrag.destroyed, qt.Equals, 0)
	c.Assert(newVert.destroyed, qt.Equals, 1)
	c.Assert(newFrag.destroyed, qt.Equals, 1)
	c.Assert(string(v.data.VertexShader), qt.Equals, "old vert")
}

func TestReloadShadersKeepsPipelineWhenLoadFails(t *testing.T) {
	c := qt.New(t)
	oldVert, oldFrag := shaderPair("old")
	stages := &scriptedStages{loadErr: errors.New("shader vert: code size 3 is not a multiple of 4")}
	v := &VulkanRenderer{shaders: []Shader{oldVert, oldFrag}, stages: stages}

	err := v.ReloadShaders([]byte{1, 2, 3}, nil)
	c.Assert(errors.Is(err, ErrShadersRejected), qt.IsTrue)
	c.Assert(stages.built, qt.HasLen, 0)
	c.Assert(stages.retired, qt.HasLen, 0)
	c.Assert(v.shaders[0], qt.Equals, Shader(oldVert))
}

func TestReloadShadersSwapsOnSuccess(t *testing.T) {
	c := qt.New(t)
	oldVert, oldFrag := shaderPair("old")
	newVert, newFrag := shaderPair("new")
	stages := &scriptedStages{loaded: []Shader{newVert, newFrag}}
	v := &VulkanRenderer{shaders: []Shader{oldVert, oldFrag}, stages: stages}

	c.Assert(v.ReloadShaders([]byte("new vert"), []byte("new frag")), qt.IsNil)

	c.Assert(stages.retired, qt.HasLen, 1)
	c.Assert(stages.retired[0][0], qt.Equals, Shader(oldVert))
	c.Assert(stages.retired[0][1], qt.Equals, Shader(oldFrag))
	c.Assert(stages.recorded, qt.Equals, 1)
	c.Assert(v.shaders[0], qt.Equals, Shader(newVert))
	c.Assert(v.shaders[1], qt.Equals, Shader(newFrag))
	c.Assert(newVert.destroyed+newFrag.destroyed, qt.Equals, 0)
	c.Assert(string(v.data.FragmentShader), qt.Equals, "new frag")
}

func TestReloadShadersRecordingFailureIsFatal(t *testing.T) {
	c := qt.New(t)
	newVert, newFrag := shaderPair("new")
	stages := &scriptedStages{
		loaded:    []Shader{newVert, newFrag},
		recordErr: errors.New("vk.EndCommandBuffer()[0]: out of memory"),
	}
	v := &VulkanRenderer{stages: stages}

	err := v.ReloadShaders([]byte("new vert"), []byte("new frag"))
	c.Assert(err, qt.ErrorMatches, `vk.EndCommandBuffer\(\)\[0\]: out of memory`)
	c.Assert(errors.Is(err, ErrShadersRejected), qt.IsFalse)
}
