package wrach

// Config is the construction-time configuration of a Simulation. It is
// validated once, in NewSimulation; nothing after construction mutates it.
type Config struct {
	// Dimensions is the viewport size in world units (particle-radius units).
	Dimensions [2]uint16
	// CellSize is the side length of a spatial bin, in particle-radius units.
	CellSize uint16
	// BoundariesAsDimensions confines particles to the viewport rectangle
	// when true; when false the viewport is a simulation window onto an
	// unbounded CPU-side store.
	BoundariesAsDimensions bool
	// ExcludeIntegrationPass skips the Integration pass entirely. It exists
	// as a test hook for exercising the Count/PrefixSum/Re-Pack chain in
	// isolation (see scenario 5 of the testable-properties table).
	ExcludeIntegrationPass bool
}

// DefaultConfig returns the configuration the core ships with when a host
// doesn't override anything.
func DefaultConfig() Config {
	return Config{
		Dimensions: [2]uint16{480, 352},
		CellSize:   2,
	}
}

func (c Config) validate() error {
	if c.Dimensions[0] == 0 || c.Dimensions[1] == 0 {
		return ErrInvalidConfig
	}
	if c.CellSize == 0 {
		return ErrInvalidConfig
	}
	if uint32(c.Dimensions[0]) < uint32(c.CellSize) || uint32(c.Dimensions[1]) < uint32(c.CellSize) {
		return ErrInvalidConfig
	}
	return nil
}
