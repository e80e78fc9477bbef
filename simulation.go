package wrach

import (
	"fmt"

	"github.com/tombh/wrach-go/internal/gpu"
)

// Simulation ties the CPU-resident particle store to the GPU tick
// pipeline. It is not safe for concurrent use from multiple goroutines.
type Simulation struct {
	cfg   Config
	grid  *Grid
	store *ParticleStore
	log   Logger

	device       *gpu.Device
	orchestrator *gpu.Orchestrator

	ready    bool
	tickSeen bool

	// settingsOverride, when set via GPUUpload(Upload{Kind: UploadSettingsOverride}),
	// replaces the settings Tick would otherwise derive from the grid and
	// packed particle count for exactly one tick.
	settingsOverride *WorldSettings
}

// NewSimulation validates cfg, builds the CPU-side grid and store, and
// stands up a headless GPU device and compute pipeline set. logger may be
// nil, in which case nothing is logged.
func NewSimulation(cfg Config, logger Logger) (*Simulation, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	grid := NewGrid(cfg.CellSize, cfg.Dimensions)

	if _, err := gpu.NewCellCounts(grid.ActiveCellCount()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigurationTooLarge, err)
	}
	if _, err := gpu.NewCellCounts(grid.AuxCellCount()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigurationTooLarge, err)
	}
	if grid.MaxParticlesInCell() > gpu.IntegrationCentreCap {
		return nil, fmt.Errorf("%w: cell_size^2 (%d) exceeds the Integration pass's per-cell capacity (%d)",
			ErrConfigurationTooLarge, grid.MaxParticlesInCell(), gpu.IntegrationCentreCap)
	}

	if logger == nil {
		logger = NewNopLogger()
	}

	device, err := gpu.NewHeadlessDevice("wrach-simulation")
	if err != nil {
		return nil, err
	}
	orchestrator, err := gpu.NewOrchestrator(device, logger)
	if err != nil {
		device.Release()
		return nil, err
	}

	return &Simulation{
		cfg:          cfg,
		grid:         grid,
		store:        NewParticleStore(grid),
		log:          logger,
		device:       device,
		orchestrator: orchestrator,
	}, nil
}

// AddParticles appends particles to the CPU store, bucketed by their
// current position. They become visible to the GPU on the next Tick. If
// the store's total would pass MaxParticlesPerFrame, none of them is added
// and ErrCapacityExceeded is returned.
func (s *Simulation) AddParticles(ps []Particle) error {
	if uint64(len(ps))+s.store.Len() > uint64(s.store.MaxParticlesPerFrame()) {
		return fmt.Errorf("%w: adding %d particles brings total past max_particles_per_frame (%d)",
			ErrCapacityExceeded, len(ps), s.store.MaxParticlesPerFrame())
	}
	return s.store.AddParticles(ps)
}

// Grid exposes the simulation's spatial grid, read-only.
func (s *Simulation) Grid() *Grid { return s.grid }

// Len is the total particle count the CPU store currently holds.
func (s *Simulation) Len() uint64 { return s.store.Len() }

// Tick packs the current store into wire format, uploads it, runs the
// four-pass pipeline (Count, Prefix Sum, Re-Pack, and Integration unless
// ExcludeIntegrationPass is set), reads the result back, and folds it into
// the CPU store so the next Tick sees the updated state.
func (s *Simulation) Tick() error {
	packed, err := s.store.CreatePackedData()
	if err != nil {
		return err
	}

	mainCounts, err := gpu.NewCellCounts(s.grid.ActiveCellCount())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigurationTooLarge, err)
	}
	auxCounts, err := gpu.NewCellCounts(s.grid.AuxCellCount())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigurationTooLarge, err)
	}

	particleCount := len(packed.Positions)
	settings := WorldSettingsFromGrid(s.grid, uint32(particleCount), s.cfg.BoundariesAsDimensions)
	if s.settingsOverride != nil {
		settings = *s.settingsOverride
		s.settingsOverride = nil
	}

	in := gpu.TickInput{
		WorldSettings:   settings.ToBytes(),
		Positions:       vec2SliceToBytes(packed.Positions),
		Velocities:      vec2SliceToBytes(packed.Velocities),
		ParticleCount:   int64(particleCount),
		MainCells:       s.grid.ActiveCellCount(),
		AuxCells:        s.grid.AuxCellCount(),
		MainSlots:       mainCounts.IndicesSlots,
		AuxSlots:        auxCounts.IndicesSlots,
		SkipIntegration: s.cfg.ExcludeIntegrationPass,
		FreshBuffers:    !s.tickSeen,
	}
	s.tickSeen = true

	out, err := s.orchestrator.RunTick(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}

	s.foldBack(out)
	s.ready = true
	return nil
}

// foldBack rebuilds the store's active cells from the GPU's readback,
// using the indices buffer to slice positions/velocities per cell.
func (s *Simulation) foldBack(out *gpu.TickOutput) {
	positions := bytesToVec2Slice(out.Positions)
	velocities := bytesToVec2Slice(out.Velocities)

	for i, cell := range s.grid.ActiveCells() {
		start := out.Indices[i+1]
		end := out.Indices[i+2]
		if start == end {
			s.store.Remove(cell)
			continue
		}
		s.store.AddParticlesToCell(cell, positions[start:end], velocities[start:end])
	}
}

// ReadPackedData returns the current canonical packed view of the store.
// It is ErrNotReady until at least one Tick has completed.
func (s *Simulation) ReadPackedData() ([]uint32, []Particle, error) {
	if !s.ready {
		return nil, nil, ErrNotReady
	}
	packed, err := s.store.CreatePackedData()
	if err != nil {
		return nil, nil, err
	}
	particles := make([]Particle, len(packed.Positions))
	for i := range particles {
		particles[i] = Particle{Position: packed.Positions[i], Velocity: packed.Velocities[i]}
	}
	return packed.Indices, particles, nil
}

// TickUntilReady runs up to maxTicks ticks, stopping as soon as the
// simulation reports ready (which in practice is after the first
// successful tick). It exists for tests and simple hosts that don't want
// to hand-roll a tick loop around a readiness check.
func (s *Simulation) TickUntilReady(maxTicks int) error {
	for i := 0; i < maxTicks; i++ {
		if err := s.Tick(); err != nil {
			return err
		}
		if s.ready {
			return nil
		}
	}
	return ErrNotReady
}

// Close releases every GPU resource the simulation owns. The Simulation
// must not be used again afterward.
func (s *Simulation) Close() {
	s.orchestrator.Release()
	s.device.Release()
}

// SimulationState is a read-only snapshot of a Simulation's internal state,
// for observers (diagnostics UIs, test harnesses) that shouldn't be able to
// mutate the live simulation.
type SimulationState struct {
	Config          Config
	Ready           bool
	ParticleCount   uint64
	GridWidth       int32
	GridHeight      int32
	ActiveCellCount int64
	AuxCellCount    int64
}

// SimulationState returns a snapshot of the simulation's current state.
func (s *Simulation) SimulationState() SimulationState {
	return SimulationState{
		Config:          s.cfg,
		Ready:           s.ready,
		ParticleCount:   s.store.Len(),
		GridWidth:       s.grid.Width(),
		GridHeight:      s.grid.Height(),
		ActiveCellCount: s.grid.ActiveCellCount(),
		AuxCellCount:    s.grid.AuxCellCount(),
	}
}
