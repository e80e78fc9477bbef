package wrach

import (
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestGrid_ActiveCells_AtOrigin(t *testing.T) {
	grid := NewGrid(6, [2]uint16{10, 10})
	got := grid.ActiveCells()
	want := []CellCoord{
		{X: 0, Y: 0}, {X: 1, Y: 0},
		{X: 0, Y: 1}, {X: 1, Y: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ActiveCells() = %v, want %v", got, want)
	}
}

func TestGrid_CellOf_NegativePosition(t *testing.T) {
	grid := NewGrid(6, [2]uint16{10, 10})
	got := grid.CellOf(mgl32.Vec2{-1, -1})
	want := CellCoord{X: -1, Y: -1}
	if got != want {
		t.Errorf("CellOf(-1,-1) = %v, want %v (Euclidean floor, not truncation)", got, want)
	}
}

func TestGrid_WidthHeight_InclusiveTopRight(t *testing.T) {
	// cell_size=5, dims=10x10: bottom_left=(0,0), top_right=floor(10/5)=(2,2),
	// so width=height=3, not 2 — the top-right cell is included.
	grid := NewGrid(5, [2]uint16{10, 10})
	if grid.Width() != 3 || grid.Height() != 3 {
		t.Errorf("Width/Height = %d/%d, want 3/3", grid.Width(), grid.Height())
	}
	if grid.ActiveCellCount() != 9 {
		t.Errorf("ActiveCellCount() = %d, want 9", grid.ActiveCellCount())
	}
	if grid.AuxCellCount() != 16 {
		t.Errorf("AuxCellCount() = %d, want 16 ((W+1)*(H+1))", grid.AuxCellCount())
	}
}

func TestGrid_MainIndex_RowMajorXFastest(t *testing.T) {
	grid := NewGrid(3, [2]uint16{6, 6}) // 3x3 grid
	k, ok := grid.MainIndex(CellCoord{X: 1, Y: 1})
	if !ok || k != 4 {
		t.Errorf("MainIndex((1,1)) = (%d, %v), want (4, true)", k, ok)
	}
	if _, ok := grid.MainIndex(CellCoord{X: 3, Y: 0}); ok {
		t.Errorf("MainIndex((3,0)) should be out of range for a 3-wide grid")
	}
}

func TestGrid_MaxParticlesInCell(t *testing.T) {
	grid := NewGrid(2, [2]uint16{6, 6})
	if grid.MaxParticlesInCell() != 4 {
		t.Errorf("MaxParticlesInCell() = %d, want 4 (cell_size^2)", grid.MaxParticlesInCell())
	}
}

func TestGrid_AuxCorners_ShareAdjacentCells(t *testing.T) {
	grid := NewGrid(3, [2]uint16{6, 6})
	a := grid.AuxCorners(CellCoord{X: 0, Y: 0})
	b := grid.AuxCorners(CellCoord{X: 1, Y: 0})
	// The main cells at (0,0) and (1,0) share their right/left aux corners.
	if a[1] != b[0] || a[3] != b[2] {
		t.Errorf("adjacent cells should share aux corners: a=%v b=%v", a, b)
	}
}
