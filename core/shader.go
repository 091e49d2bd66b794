// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ShaderTypeFromPath guesses the stage from a file name like
// shader.vert, vert.spv or frag.spv.
func ShaderTypeFromPath(p string) ShaderType {
	name := strings.ToLower(path.Base(p))
	switch {
	case strings.Contains(name, "vert"):
		return VertexShaderType
	case strings.Contains(name, "frag"):
		return FragmentShaderType
	default:
		return UnknownShaderType
	}
}

// NewVulkanShader creates a shader module from SPIR-V code
func NewVulkanShader(name string, shaderType ShaderType, code []byte, device vk.Device) (Shader, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.Newf("shader %s: code size %d is not a multiple of 4", name, len(code))
	}

	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    SliceUint32(code),
	}

	var module vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(device, &smci, nil, &module)); err != nil {
		return nil, errors.Wrapf(err, "vk.CreateShaderModule(%s)", shaderType)
	}

	return &VulkanShader{
		name:       name,
		shaderType: shaderType,
		device:     device,
		module:     module,
	}, nil
}

// VulkanShader is a Vulkan specific shader
type VulkanShader struct {
	name       string
	shaderType ShaderType
	device     vk.Device
	module     vk.ShaderModule
}

// Type implements interface
func (v *VulkanShader) Type() ShaderType {
	return v.shaderType
}

// ShaderModule is an accessor to the internal vk.ShaderModule
func (v *VulkanShader) ShaderModule() interface{} {
	return v.module
}

// Name implements interface
func (v *VulkanShader) Name() string {
	return v.name
}

// Destroy implements interface
func (v *VulkanShader) Destroy() {
	vk.DestroyShaderModule(v.device, v.module, nil)
}

// loadShaders builds the vertex and fragment modules. Nothing is kept on failure.
func (v *VulkanRenderer) loadShaders(vert, frag []byte) ([]Shader, error) {
	vertex, err := NewVulkanShader("vert", VertexShaderType, vert, v.logicalDevice)
	if err != nil {
		return nil, err
	}
	fragment, err := NewVulkanShader("frag", FragmentShaderType, frag, v.logicalDevice)
	if err != nil {
		vertex.Destroy()
		return nil, err
	}
	return []Shader{vertex, fragment}, nil
}
