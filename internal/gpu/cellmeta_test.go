package gpu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCellCounts_WithinBound(t *testing.T) {
	cc, err := NewCellCounts(100)
	require.NoError(t, err)
	if cc.ActiveCells != 100 {
		t.Errorf("ActiveCells = %d, want 100", cc.ActiveCells)
	}
	if cc.IndicesSlots != 102 {
		t.Errorf("IndicesSlots = %d, want 102 (cells + offset-hack + guard)", cc.IndicesSlots)
	}
}

func TestNewCellCounts_IndicesSlotsAtBound(t *testing.T) {
	// The largest legal active-cell count is the one whose IndicesSlots
	// (activeCells + offset-hack + guard) lands exactly on
	// MaxCellsForPrefixSumPipeline: the second-level scan in
	// dispatchPrefixSum covers indices buffers up to that length in one
	// reduce_downsweep workgroup.
	largest := MaxCellsForPrefixSumPipeline - PrefixSumOffsetHack - PrefixSumGuardItem
	cc, err := NewCellCounts(largest)
	require.NoError(t, err)
	if cc.IndicesSlots != MaxCellsForPrefixSumPipeline {
		t.Errorf("IndicesSlots = %d, want %d", cc.IndicesSlots, MaxCellsForPrefixSumPipeline)
	}
}

func TestNewCellCounts_IndicesSlotsOverBound(t *testing.T) {
	// One more active cell pushes IndicesSlots one past the ceiling, which
	// must be rejected even though the raw activeCells count alone is
	// still below MaxCellsForPrefixSumPipeline.
	tooMany := MaxCellsForPrefixSumPipeline - PrefixSumOffsetHack - PrefixSumGuardItem + 1
	_, err := NewCellCounts(tooMany)
	require.ErrorIs(t, err, ErrTooManyCells)

	_, err = NewCellCounts(MaxCellsForPrefixSumPipeline)
	require.ErrorIs(t, err, ErrTooManyCells)
}

func TestDivCeil(t *testing.T) {
	cases := []struct{ a, b, want int64 }{
		{0, 64, 0},
		{1, 64, 1},
		{64, 64, 1},
		{65, 64, 2},
		{2048, 2048, 1},
		{2049, 2048, 2},
	}
	for _, tc := range cases {
		if got := DivCeil(tc.a, tc.b); got != tc.want {
			t.Errorf("DivCeil(%d,%d) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestDivCeil_PanicsOnNonPositiveDivisor(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero divisor")
		}
	}()
	DivCeil(10, 0)
}

func TestCountWorkgroups(t *testing.T) {
	if got := CountWorkgroups(0); got != 0 {
		t.Errorf("CountWorkgroups(0) = %d, want 0", got)
	}
	if got := CountWorkgroups(64); got != 1 {
		t.Errorf("CountWorkgroups(64) = %d, want 1", got)
	}
	if got := CountWorkgroups(65); got != 2 {
		t.Errorf("CountWorkgroups(65) = %d, want 2", got)
	}
}

func TestPrefixSumWorkgroups(t *testing.T) {
	if got := PrefixSumWorkgroups(2048); got != 1 {
		t.Errorf("PrefixSumWorkgroups(2048) = %d, want 1", got)
	}
	if got := PrefixSumWorkgroups(2049); got != 2 {
		t.Errorf("PrefixSumWorkgroups(2049) = %d, want 2", got)
	}
}

func TestIntegrationWorkgroups(t *testing.T) {
	if got := IntegrationWorkgroups(42); got != 42 {
		t.Errorf("IntegrationWorkgroups(42) = %d, want 42 (one workgroup per main cell)", got)
	}
}
