package wrach

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CellCoord is a signed 2D integer cell coordinate.
type CellCoord struct {
	X, Y int32
}

// Grid is a pure function of Config: it maps world positions to cell
// coordinates and enumerates the active cells covering a viewport. It holds
// no particle data.
type Grid struct {
	cellSize    float32
	anchor      mgl32.Vec2
	dimensions  mgl32.Vec2
	bottomLeft  CellCoord
	topRight    CellCoord
	width       int32
	height      int32
}

// NewGrid builds a Grid for a viewport anchored at the origin with the given
// dimensions and cell size. cellSize == 0 is a programmer error; callers
// validate Config before reaching here.
func NewGrid(cellSize uint16, dimensions [2]uint16) *Grid {
	if cellSize == 0 {
		panic("wrach: grid cell size must be non-zero")
	}
	g := &Grid{
		cellSize:   float32(cellSize),
		anchor:     mgl32.Vec2{0, 0},
		dimensions: mgl32.Vec2{float32(dimensions[0]), float32(dimensions[1])},
	}
	g.bottomLeft = g.CellOf(g.anchor)
	g.topRight = g.CellOf(g.anchor.Add(g.dimensions))
	g.width = g.topRight.X - g.bottomLeft.X + 1
	g.height = g.topRight.Y - g.bottomLeft.Y + 1
	return g
}

// CellOf is component-wise Euclidean floor division by cell size, so
// negative positions map to the correct (negative) cell rather than
// truncating toward zero.
func (g *Grid) CellOf(p mgl32.Vec2) CellCoord {
	return CellCoord{
		X: int32(math.Floor(float64(p.X() / g.cellSize))),
		Y: int32(math.Floor(float64(p.Y() / g.cellSize))),
	}
}

// Width and Height are the active-grid dimensions in cells.
func (g *Grid) Width() int32  { return g.width }
func (g *Grid) Height() int32 { return g.height }

// ActiveCellCount is W*H, the number of cells in the main grid.
func (g *Grid) ActiveCellCount() int64 {
	return int64(g.width) * int64(g.height)
}

// AuxCellCount is (W+1)*(H+1), the number of cells in the auxiliary grid
// that each collect particles from up to four corner-sharing centre cells.
func (g *Grid) AuxCellCount() int64 {
	return int64(g.width+1) * int64(g.height+1)
}

// CellSize returns the configured cell side length.
func (g *Grid) CellSize() float32 { return g.cellSize }

// Anchor and Dimensions describe the simulated viewport rectangle.
func (g *Grid) Anchor() mgl32.Vec2     { return g.anchor }
func (g *Grid) Dimensions() mgl32.Vec2 { return g.dimensions }

// MainIndex returns the row-major (x-fastest) index k = y*W + x of a cell
// coordinate relative to the grid's bottom-left cell, and whether the
// coordinate falls inside the active grid at all.
func (g *Grid) MainIndex(c CellCoord) (k int64, ok bool) {
	x := c.X - g.bottomLeft.X
	y := c.Y - g.bottomLeft.Y
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return 0, false
	}
	return int64(y)*int64(g.width) + int64(x), true
}

// AuxCorners returns the coordinates, in the (W+1)x(H+1) aux grid's own
// index space, of the four aux cells whose corner touches cell c: the
// corners at (x,y), (x+1,y), (x,y+1), (x+1,y+1) relative to the grid's
// bottom-left cell. All four are always in range because the aux grid is
// exactly one cell wider and taller than the main grid on each axis.
func (g *Grid) AuxCorners(c CellCoord) [4]int64 {
	x := int64(c.X - g.bottomLeft.X)
	y := int64(c.Y - g.bottomLeft.Y)
	auxW := int64(g.width) + 1
	return [4]int64{
		y*auxW + x,       // bottom-left
		y*auxW + x + 1,   // bottom-right
		(y+1)*auxW + x,   // top-left
		(y+1)*auxW + x + 1, // top-right
	}
}

// ActiveCells enumerates every active cell coordinate in row-major
// (x-fastest) order, matching the ordering MainIndex assigns.
func (g *Grid) ActiveCells() []CellCoord {
	cells := make([]CellCoord, 0, g.ActiveCellCount())
	for y := g.bottomLeft.Y; y <= g.topRight.Y; y++ {
		for x := g.bottomLeft.X; x <= g.topRight.X; x++ {
			cells = append(cells, CellCoord{X: x, Y: y})
		}
	}
	return cells
}

// MaxParticlesInCell is the static per-cell capacity budget: cell_size
// squared. Cells exceeding this during Integration run an integrate-only
// path for the surplus particles rather than dropping them.
func (g *Grid) MaxParticlesInCell() int64 {
	cs := int64(g.cellSize)
	return cs * cs
}
