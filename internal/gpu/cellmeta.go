package gpu

import "fmt"

// Pipeline-wide constants, grounded on the original implementation's
// compute/buffers.rs and compute/03_prefix_sum.rs.
const (
	// MaxCellsForPrefixSumPipeline bounds how many cells the two-stage
	// (down-sweep + block-sum) scan can service.
	MaxCellsForPrefixSumPipeline = 4_194_304
	// PrefixSumItemsPerWorkgroup is how many indices elements one
	// prefix-sum workgroup reduces in its down-sweep.
	PrefixSumItemsPerWorkgroup = 2048
	// PrefixSumGuardItem is the trailing duplicated guard entry appended
	// to every indices array.
	PrefixSumGuardItem = 1
	// PrefixSumOffsetHack is the extra leading zero reserved because the
	// prefix sum writes its results shifted one slot to the right.
	PrefixSumOffsetHack = 1
	// ParticleWorkgroupLocalSize is the thread-group size used by the
	// Count pass (one thread per particle) and as the per-cell thread
	// count of the Integration pass.
	ParticleWorkgroupLocalSize = 64

	// IntegrationCentreCap is the fixed workgroup-local capacity
	// integration.wgsl reserves for one main cell's own particles.
	// MAX_PARTICLES_IN_CELL (cell_size^2) must not exceed this, since WGSL
	// workgroup array sizes are compile-time constants; the root package
	// rejects any Config whose cell_size would overflow it.
	IntegrationCentreCap = 1024
)

// CellCounts is the derived buffer-sizing metadata for one grid (main or
// aux): how many u32 slots the indices buffer needs including the
// offset-hack head and guard tail.
type CellCounts struct {
	ActiveCells  int64
	IndicesSlots int64
}

// NewCellCounts validates activeCells against the prefix sum pipeline's
// ceiling and derives the indices buffer length (cells + offset-hack +
// guard). Exceeding the ceiling is ErrTooManyCells, the gpu-local analogue
// of ErrConfigurationTooLarge.
//
// The bound is checked against indicesSlots, not the raw cell count: the
// two-stage scan's second level (a single reduce_downsweep workgroup) only
// covers up to PrefixSumItemsPerWorkgroup block sums, and dispatchPrefixSum
// always scans the indices buffer itself (length indicesSlots), never the
// raw cell count. indicesSlots <= MaxCellsForPrefixSumPipeline is exactly
// the condition that keeps numBlocks = PrefixSumWorkgroups(indicesSlots)
// within that second level's single-workgroup capacity.
func NewCellCounts(activeCells int64) (CellCounts, error) {
	indicesSlots := activeCells + PrefixSumOffsetHack + PrefixSumGuardItem
	if indicesSlots > MaxCellsForPrefixSumPipeline {
		return CellCounts{}, fmt.Errorf("%w: %d active cells (indices buffer length %d) exceeds pipeline maximum %d",
			ErrTooManyCells, activeCells, indicesSlots, MaxCellsForPrefixSumPipeline)
	}
	return CellCounts{
		ActiveCells:  activeCells,
		IndicesSlots: indicesSlots,
	}, nil
}

// DivCeil is integer ceiling division for non-negative a and positive b.
func DivCeil(a, b int64) int64 {
	if b <= 0 {
		panic("wrach/gpu: DivCeil by non-positive divisor")
	}
	return (a + b - 1) / b
}

// CountWorkgroups is the dispatch size for the Per-Cell Count pass: one
// thread per particle, grouped into fixed-size workgroups.
func CountWorkgroups(totalParticles int64) int64 {
	return DivCeil(totalParticles, ParticleWorkgroupLocalSize)
}

// PrefixSumWorkgroups is the dispatch size for one down-sweep stage of the
// Prefix Sum pass over a buffer of indicesSlots elements.
func PrefixSumWorkgroups(indicesSlots int64) int64 {
	return DivCeil(indicesSlots, PrefixSumItemsPerWorkgroup)
}

// IntegrationWorkgroups is the dispatch size for the Integration pass: one
// workgroup per main cell.
func IntegrationWorkgroups(totalCells int64) int64 {
	return totalCells
}
