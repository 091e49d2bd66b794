// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// ErrNoSuitableDevice is returned when no GPU scores above zero
var ErrNoSuitableDevice = errors.New("no suitable GPU")

// QueueFamily is the part of a queue family's properties that
// device selection looks at.
type QueueFamily struct {
	Flags      vk.QueueFlags
	QueueCount uint32
	Present    bool
}

// QueueFamilyIndices are the families the renderer submits to
type QueueFamilyIndices struct {
	Graphics    uint32
	Present     uint32
	HasGraphics bool
	HasPresent  bool
}

// IsComplete is true once both families are found
func (q QueueFamilyIndices) IsComplete() bool {
	return q.HasGraphics && q.HasPresent
}

// Unique returns the distinct family indices, graphics first
func (q QueueFamilyIndices) Unique() []uint32 {
	if q.Graphics == q.Present {
		return []uint32{q.Graphics}
	}
	return []uint32{q.Graphics, q.Present}
}

// FindQueueFamilies picks the first family with graphics capability
// and the first one that can present, stopping once both are known.
func FindQueueFamilies(families []QueueFamily) QueueFamilyIndices {
	var indices QueueFamilyIndices
	for i, family := range families {
		if family.QueueCount == 0 {
			continue
		}
		if !indices.HasGraphics && family.Flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			indices.Graphics = uint32(i)
			indices.HasGraphics = true
		}
		if !indices.HasPresent && family.Present {
			indices.Present = uint32(i)
			indices.HasPresent = true
		}
		if indices.IsComplete() {
			break
		}
	}
	return indices
}

// DeviceCandidate is everything the scoring heuristic needs to know
// about one physical device.
type DeviceCandidate struct {
	Name                string
	Discrete            bool
	MaxImageDimension2D uint32
	GeometryShader      bool
	Families            QueueFamilyIndices
	Extensions          []string
	SurfaceFormats      int
	PresentModes        int
}

// ScoreDevice rates a device for rendering the scene, 0 means unsuitable
func ScoreDevice(c DeviceCandidate, requiredExtensions []string) int {
	if !c.GeometryShader {
		return 0
	}
	if !c.Families.IsComplete() {
		return 0
	}
	if len(missingNames(requiredExtensions, c.Extensions)) > 0 {
		return 0
	}
	if c.SurfaceFormats == 0 || c.PresentModes == 0 {
		return 0
	}

	score := 0
	if c.Discrete {
		score += 1000
	}
	score += int(c.MaxImageDimension2D)
	if c.Families.HasGraphics {
		score += 1000
	}
	return score
}

// SelectDevice returns the index of the best scoring candidate.
// Equal scores go to the later candidate.
func SelectDevice(candidates []DeviceCandidate, requiredExtensions []string) (int, error) {
	if len(candidates) == 0 {
		return -1, ErrNoDevices
	}
	best, bestScore := -1, 0
	for idx, c := range candidates {
		score := ScoreDevice(c, requiredExtensions)
		log.WithFields(log.Fields{
			"device": c.Name,
			"score":  score,
		}).Info("GPU found")
		if score > 0 && score >= bestScore {
			best, bestScore = idx, score
		}
	}
	if best < 0 {
		return -1, ErrNoSuitableDevice
	}
	return best, nil
}

// SelectPhysicalDevice probes every available device of the instance against
// its surface and returns the most suitable one.
func SelectPhysicalDevice(instance Instance, requiredExtensions []string) (vk.PhysicalDevice, error) {
	devices := instance.AvailableDevices()
	candidates := make([]DeviceCandidate, len(devices))
	for idx, device := range devices {
		candidate, err := describeDevice(device, instance.Surface())
		if err != nil {
			return nil, err
		}
		candidates[idx] = candidate
	}

	idx, err := SelectDevice(candidates, requiredExtensions)
	if err != nil {
		return nil, err
	}
	log.WithField("device", candidates[idx].Name).Info("GPU selected")
	return devices[idx], nil
}

func describeDevice(device vk.PhysicalDevice, surface vk.Surface) (DeviceCandidate, error) {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()
	properties.Limits.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(device, &features)
	features.Deref()

	extensions, err := deviceExtensions(device)
	if err != nil {
		return DeviceCandidate{}, err
	}

	candidate := DeviceCandidate{
		Name:                vk.ToString(properties.DeviceName[:]),
		Discrete:            properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu,
		MaxImageDimension2D: properties.Limits.MaxImageDimension2D,
		GeometryShader:      features.GeometryShader.B(),
		Families:            FindQueueFamilies(queueFamilies(device, surface)),
		Extensions:          extensions,
	}

	if surface != vk.NullSurface {
		support, err := querySwapchainSupport(device, surface)
		if err != nil {
			return DeviceCandidate{}, err
		}
		candidate.SurfaceFormats = len(support.Formats)
		candidate.PresentModes = len(support.PresentModes)
	}
	return candidate, nil
}

func queueFamilies(device vk.PhysicalDevice, surface vk.Surface) []QueueFamily {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	properties := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, properties)

	families := make([]QueueFamily, queueFamilyCount)
	for i := range properties {
		properties[i].Deref()
		families[i].Flags = properties[i].QueueFlags
		families[i].QueueCount = properties[i].QueueCount

		if surface != vk.NullSurface {
			var supportsPresent vk.Bool32
			vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent)
			families[i].Present = supportsPresent.B()
		}
	}
	return families
}
