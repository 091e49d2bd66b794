// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/vkscene/model"
)

// TextureFormat is the format textures are uploaded in
const TextureFormat = vk.FormatR8g8b8a8Srgb

// DepthFormats are the depth attachment formats in order of preference
var DepthFormats = []vk.Format{
	vk.FormatD32Sfloat,
	vk.FormatD32SfloatS8Uint,
	vk.FormatD24UnormS8Uint,
}

// ErrUnsupportedTransition is returned for image layout changes the
// renderer has no barrier for.
var ErrUnsupportedTransition = errors.New("unsupported layout transition")

// LayoutBarrier is the synchronisation for one image layout transition
type LayoutBarrier struct {
	SrcAccess vk.AccessFlags
	DstAccess vk.AccessFlags
	SrcStage  vk.PipelineStageFlags
	DstStage  vk.PipelineStageFlags
}

// TransitionBarrier returns the barrier for moving an image between layouts.
// Only the texture upload transitions are known.
func TransitionBarrier(old, new vk.ImageLayout) (LayoutBarrier, error) {
	switch {
	case old == vk.ImageLayoutUndefined && new == vk.ImageLayoutTransferDstOptimal:
		return LayoutBarrier{
			SrcAccess: 0,
			DstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			SrcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			DstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		}, nil
	case old == vk.ImageLayoutTransferDstOptimal && new == vk.ImageLayoutShaderReadOnlyOptimal:
		return LayoutBarrier{
			SrcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
			SrcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			DstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		}, nil
	}
	return LayoutBarrier{}, errors.Wrapf(ErrUnsupportedTransition, "%d -> %d", old, new)
}

// ChooseSupportedFormat returns the first candidate whose optimal tiling
// features include all of required.
func ChooseSupportedFormat(candidates []vk.Format, required vk.FormatFeatureFlags, optimalFeatures func(vk.Format) vk.FormatFeatureFlags) (vk.Format, error) {
	for _, format := range candidates {
		if optimalFeatures(format)&required == required {
			return format, nil
		}
	}
	return vk.FormatUndefined, errors.New("no supported format found")
}

// HasStencilComponent is true for depth formats carrying stencil bits
func HasStencilComponent(format vk.Format) bool {
	return format == vk.FormatD32SfloatS8Uint || format == vk.FormatD24UnormS8Uint
}

func (v *VulkanRenderer) optimalTilingFeatures(format vk.Format) vk.FormatFeatureFlags {
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(v.physicalDevice, format, &properties)
	properties.Deref()
	return properties.OptimalTilingFeatures
}

func (v *VulkanRenderer) findDepthFormat() (vk.Format, error) {
	format, err := ChooseSupportedFormat(DepthFormats,
		vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit),
		v.optimalTilingFeatures)
	if err != nil {
		return format, errors.Wrap(err, "depth attachment")
	}
	log.WithFields(log.Fields{
		"format":  format,
		"stencil": HasStencilComponent(format),
	}).Debug("Depth format selected")
	return format, nil
}

func (v *VulkanRenderer) createImage(width, height uint32, format vk.Format, usage vk.ImageUsageFlagBits, properties vk.MemoryPropertyFlagBits) (vk.Image, vk.DeviceMemory, error) {
	ici := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         vk.ImageUsageFlags(usage),
		SharingMode:   vk.SharingModeExclusive,
		Samples:       vk.SampleCount1Bit,
	}

	var image vk.Image
	if err := vk.Error(vk.CreateImage(v.logicalDevice, &ici, nil, &image)); err != nil {
		return nil, nil, errors.Wrap(err, "vk.CreateImage()")
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(v.logicalDevice, image, &requirements)
	requirements.Deref()

	memory, err := v.allocateMemory(requirements, properties)
	if err != nil {
		vk.DestroyImage(v.logicalDevice, image, nil)
		return nil, nil, err
	}

	if err := vk.Error(vk.BindImageMemory(v.logicalDevice, image, memory, 0)); err != nil {
		vk.DestroyImage(v.logicalDevice, image, nil)
		vk.FreeMemory(v.logicalDevice, memory, nil)
		return nil, nil, errors.Wrap(err, "vk.BindImageMemory()")
	}
	return image, memory, nil
}

func (v *VulkanRenderer) createImageView(image vk.Image, format vk.Format, aspect vk.ImageAspectFlagBits) (vk.ImageView, error) {
	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(aspect),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var imageView vk.ImageView
	if err := vk.Error(vk.CreateImageView(v.logicalDevice, &ivci, nil, &imageView)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateImageView()")
	}
	return imageView, nil
}

func (v *VulkanRenderer) transitionLayout(img vk.Image, old, new vk.ImageLayout) error {
	transition, err := TransitionBarrier(old, new)
	if err != nil {
		return err
	}

	cmd, err := v.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           old,
		NewLayout:           new,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SrcAccessMask:       transition.SrcAccess,
		DstAccessMask:       transition.DstAccess,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	vk.CmdPipelineBarrier(cmd, transition.SrcStage, transition.DstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return v.endSingleTimeCommands(cmd)
}

func (v *VulkanRenderer) createTextureImage(texture model.Texture) error {
	staging, stagingMemory, err := v.createStagingBuffer(unsafe.Pointer(&texture.Pixels[0]), texture.Size())
	if err != nil {
		return errors.Wrap(err, "texture")
	}
	defer func() {
		vk.DestroyBuffer(v.logicalDevice, staging, nil)
		vk.FreeMemory(v.logicalDevice, stagingMemory, nil)
	}()

	image, memory, err := v.createImage(texture.Width, texture.Height, TextureFormat,
		vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return errors.Wrap(err, "texture")
	}
	v.textureImage = image
	v.textureImageMemory = memory

	if err := v.transitionLayout(image, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		return err
	}

	if err := v.copyBufferToImage(staging, image, texture.Width, texture.Height); err != nil {
		return err
	}

	return v.transitionLayout(image, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
}

func (v *VulkanRenderer) createTextureImageView() error {
	view, err := v.createImageView(v.textureImage, TextureFormat, vk.ImageAspectColorBit)
	if err != nil {
		return errors.Wrap(err, "texture")
	}
	v.textureImageView = view
	return nil
}

func (v *VulkanRenderer) createTextureSampler() error {
	sci := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
	}
	if v.anisotropy {
		sci.AnisotropyEnable = vk.True
		sci.MaxAnisotropy = v.maxAnisotropy
	}

	var sampler vk.Sampler
	if err := vk.Error(vk.CreateSampler(v.logicalDevice, &sci, nil, &sampler)); err != nil {
		return errors.Wrap(err, "vk.CreateSampler()")
	}
	v.textureSampler = sampler
	return nil
}

// prepareDepthImage creates the depth attachment in the format the render pass was made with
func (v *VulkanRenderer) prepareDepthImage() error {
	image, memory, err := v.createImage(v.extent.Width, v.extent.Height, v.depthImageFormat,
		vk.ImageUsageDepthStencilAttachmentBit, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return errors.Wrap(err, "depth image")
	}
	v.depthImage = image
	v.depthImageMemory = memory

	view, err := v.createImageView(image, v.depthImageFormat, vk.ImageAspectDepthBit)
	if err != nil {
		return errors.Wrap(err, "depth image")
	}
	v.depthImageView = view
	return nil
}
