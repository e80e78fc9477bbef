package gpu

import "errors"

// ErrTooManyCells is the gpu package's local signal that an active-cell
// count exceeds the prefix sum pipeline's ceiling. The root package wraps
// this into wrach.ErrConfigurationTooLarge at the Simulation boundary.
var ErrTooManyCells = errors.New("wrach/gpu: active cell count exceeds prefix sum pipeline maximum")

// ErrDeviceLost signals an irrecoverable GPU submission failure. Once
// returned, the Orchestrator that produced it must not be used again.
var ErrDeviceLost = errors.New("wrach/gpu: device lost")
