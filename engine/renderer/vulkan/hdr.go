package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/Kobazaaa/Ashen/engine/core"
)

// SetHDR switches the scattering passes between the swapchain and the HDR target. Pipelines
// whose color attachment format no longer matches are rebuilt; the post process pipeline
// always targets the swapchain and is kept. The replacements are built before anything is
// destroyed, so a failed build leaves the previous state and pipelines in place.
func (r *Renderer) SetHDR(enabled bool) error {
	if enabled == r.hdrEnabled {
		return nil
	}
	if err := r.context.Device.WaitIdle(); err != nil {
		return err
	}
	r.hdrEnabled = enabled
	format := r.colorFormat()

	var staged [passCount][variantCount]VulkanPipeline
	var built [passCount][variantCount]bool
	discard := func() {
		for pass := range staged {
			for variant := range staged[pass] {
				if built[pass][variant] {
					staged[pass][variant].Destroy()
				}
			}
		}
	}

	builder := r.newScatterBuilder()
	for pass := scatterPass(0); pass < passCount; pass++ {
		for variant := 0; variant < variantCount; variant++ {
			if pipelineTargets(&r.pipelines[pass][variant], format) {
				continue
			}
			if err := r.buildScatterPipeline(builder, pass, variant, &staged[pass][variant]); err != nil {
				core.LogError("HDR toggle: %s", err)
				discard()
				r.hdrEnabled = !enabled
				return err
			}
			built[pass][variant] = true
		}
	}

	rebuilt := 0
	for pass := range staged {
		for variant := range staged[pass] {
			if !built[pass][variant] {
				continue
			}
			r.pipelines[pass][variant].Destroy()
			r.pipelines[pass][variant] = staged[pass][variant]
			rebuilt++
		}
	}
	core.LogInfo("HDR %t, %d pipelines rebuilt.", enabled, rebuilt)
	return nil
}

// ToggleHDR flips the HDR state.
func (r *Renderer) ToggleHDR() error {
	return r.SetHDR(!r.hdrEnabled)
}

func pipelineTargets(pipeline *VulkanPipeline, format vk.Format) bool {
	return len(pipeline.ColorFormats) == 1 && pipeline.ColorFormats[0] == format
}
