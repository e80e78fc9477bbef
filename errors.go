package wrach

import "errors"

// ErrInvalidConfig is returned when construction is given zero or mismatched
// dimensions, a zero cell size, or a viewport smaller than a single cell.
var ErrInvalidConfig = errors.New("wrach: invalid config")

// ErrConfigurationTooLarge is returned when the active cell count would
// exceed the prefix sum pipeline's maximum.
var ErrConfigurationTooLarge = errors.New("wrach: configuration too large")

// ErrCapacityExceeded is returned when a particle count overflows u32 or
// exceeds the configured max_particles_per_frame.
var ErrCapacityExceeded = errors.New("wrach: capacity exceeded")

// ErrDeviceLost is returned by Tick when the GPU side of the tick fails;
// every orchestrator error is wrapped in it. The Simulation keeps no failed
// state afterwards: a later Tick runs the pipeline again.
var ErrDeviceLost = errors.New("wrach: device lost")

// ErrNotReady is returned by ReadPackedData before the first tick has
// completed. It is a soft, recoverable signal, not a fatal condition.
var ErrNotReady = errors.New("wrach: not ready")
