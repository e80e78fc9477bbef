package wrach

import (
	"math"
	"runtime"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// cellBucket is the CPU-resident vector pair for one cell coordinate.
type cellBucket struct {
	positions  []mgl32.Vec2
	velocities []mgl32.Vec2
}

// ParticleStore is the canonical CPU-resident mapping from cell coordinate
// to {positions, velocities}. It owns every particle the core knows about,
// including ones that currently fall outside the active viewport grid.
type ParticleStore struct {
	grid  *Grid
	cells map[CellCoord]*cellBucket
	total uint64
}

// NewParticleStore creates an empty store bound to grid's cell geometry.
func NewParticleStore(grid *Grid) *ParticleStore {
	return &ParticleStore{
		grid:  grid,
		cells: make(map[CellCoord]*cellBucket),
	}
}

// AddParticle derives the particle's cell from its current position and
// appends it to that cell's vectors. It always appends — calling it twice
// with the same particle produces two particles.
func (s *ParticleStore) AddParticle(p Particle) error {
	if s.total >= math.MaxUint32 {
		return ErrCapacityExceeded
	}
	cell := s.grid.CellOf(p.Position)
	b, ok := s.cells[cell]
	if !ok {
		b = &cellBucket{}
		s.cells[cell] = b
	}
	b.positions = append(b.positions, p.Position)
	b.velocities = append(b.velocities, p.Velocity)
	s.total++
	return nil
}

// AddParticles is a convenience wrapper over AddParticle for batch inserts.
func (s *ParticleStore) AddParticles(ps []Particle) error {
	for _, p := range ps {
		if err := s.AddParticle(p); err != nil {
			return err
		}
	}
	return nil
}

// AddParticlesToCell overwrites one cell's vectors outright. Used to fold
// GPU readback results (the new authoritative state of the in-viewport set)
// back into the CPU store between ticks.
func (s *ParticleStore) AddParticlesToCell(cell CellCoord, positions, velocities []mgl32.Vec2) {
	old, existed := s.cells[cell]
	if existed {
		s.total -= uint64(len(old.positions))
	}
	s.cells[cell] = &cellBucket{positions: positions, velocities: velocities}
	s.total += uint64(len(positions))
}

// Remove drops all particles in a cell.
func (s *ParticleStore) Remove(cell CellCoord) {
	if b, ok := s.cells[cell]; ok {
		s.total -= uint64(len(b.positions))
		delete(s.cells, cell)
	}
}

// Len returns the total number of particles known to the store, including
// ones outside the active viewport grid.
func (s *ParticleStore) Len() uint64 { return s.total }

// MaxParticlesPerFrame is the capacity budget Simulation.AddParticles checks
// the store's total against: active_cells * cell_size^2, plus a 10% margin computed as
// 10 * ceil(base/100) rather than a plain base*1.10 (so e.g. a base of 64
// yields 64 + 10*ceil(64/100) = 74, not 71).
func (s *ParticleStore) MaxParticlesPerFrame() int64 {
	base := s.grid.ActiveCellCount() * s.grid.MaxParticlesInCell()
	onePercent := int64(math.Ceil(float64(base) / 100))
	return base + 10*onePercent
}

// PackedData is the (indices, positions, velocities) wire contract between
// the CPU store and the GPU buffer set.
type PackedData struct {
	Indices    []uint32
	Positions  []mgl32.Vec2
	Velocities []mgl32.Vec2
}

// CreatePackedData walks the active cells in grid order, emits the two
// leading reserved zeros and a running prefix sum per cell, and concatenates
// positions/velocities in ascending cell-index order. Empty cells still
// advance the indices entry. Calling it twice on an unchanged store yields
// byte-identical output.
func (s *ParticleStore) CreatePackedData() (*PackedData, error) {
	cells := s.grid.ActiveCells()
	n := len(cells)

	counts := make([]uint32, n)
	var grandTotal uint64
	for i, c := range cells {
		if b, ok := s.cells[c]; ok {
			counts[i] = uint32(len(b.positions))
			grandTotal += uint64(len(b.positions))
		}
	}
	if grandTotal > math.MaxUint32 {
		return nil, ErrCapacityExceeded
	}

	indices := make([]uint32, n+2)
	var running uint32
	for i, c := range counts {
		running += c
		indices[i+2] = running
	}

	positions := make([]mgl32.Vec2, grandTotal)
	velocities := make([]mgl32.Vec2, grandTotal)

	// Fill offsets are already known from the prefix sum above, so the
	// per-cell copy into the shared output slices can run concurrently:
	// each worker only ever touches the disjoint slice region its chunk of
	// cells was assigned, so there is no write-write overlap to guard.
	workerCount := runtime.GOMAXPROCS(0)
	if workerCount > n {
		workerCount = n
	}
	if workerCount < 1 {
		workerCount = 1
	}
	chunk := (n + workerCount - 1) / workerCount
	if chunk < 1 {
		chunk = 1
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				b, ok := s.cells[cells[i]]
				if !ok || len(b.positions) == 0 {
					continue
				}
				off := indices[i+1]
				copy(positions[off:], b.positions)
				copy(velocities[off:], b.velocities)
			}
		}(start, end)
	}
	wg.Wait()

	return &PackedData{Indices: indices, Positions: positions, Velocities: velocities}, nil
}
