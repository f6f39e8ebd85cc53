package core

import (
	"errors"
)

var (
	// Returned by acquire/present when the surface no longer matches the swapchain.
	ErrSwapchainOutOfDate = errors.New("swapchain out of date or suboptimal")

	// Returned when a swapchain rebuild is requested for a minimized window.
	ErrZeroExtent = errors.New("swapchain extent has a zero dimension")

	ErrNoSuitableDevice  = errors.New("no suitable physical device found")
	ErrNoMemoryType      = errors.New("no memory type matches the requested properties")
	ErrNoSupportedFormat = errors.New("none of the candidate formats is supported")
	ErrShaderNotFound    = errors.New("shader bytecode not found")
	ErrUnknown           = errors.New("unknown")
)
