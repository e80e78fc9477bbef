package wrach

import (
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestParticleStore_CreatePackedData_OneParticleInMiddle(t *testing.T) {
	grid := NewGrid(3, [2]uint16{6, 6})
	store := NewParticleStore(grid)
	p := Particle{Position: mgl32.Vec2{4.5, 4.5}, Velocity: mgl32.Vec2{1.1, 2.3}}
	if err := store.AddParticle(p); err != nil {
		t.Fatal(err)
	}

	data, err := store.CreatePackedData()
	if err != nil {
		t.Fatal(err)
	}

	want := []uint32{0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1}
	if !reflect.DeepEqual(data.Indices, want) {
		t.Errorf("Indices = %v, want %v", data.Indices, want)
	}
	if len(data.Positions) != 1 || data.Positions[0] != p.Position {
		t.Errorf("Positions = %v, want [%v]", data.Positions, p.Position)
	}
	if len(data.Velocities) != 1 || data.Velocities[0] != p.Velocity {
		t.Errorf("Velocities = %v, want [%v]", data.Velocities, p.Velocity)
	}
}

func TestParticleStore_CreatePackedData_ThreeParticlesInMiddle(t *testing.T) {
	grid := NewGrid(3, [2]uint16{6, 6})
	store := NewParticleStore(grid)
	p := Particle{Position: mgl32.Vec2{3.0, 3.0}, Velocity: mgl32.Vec2{1.1, 2.3}}
	for i := 0; i < 3; i++ {
		if err := store.AddParticle(p); err != nil {
			t.Fatal(err)
		}
	}

	data, err := store.CreatePackedData()
	if err != nil {
		t.Fatal(err)
	}

	want := []uint32{0, 0, 0, 0, 0, 0, 3, 3, 3, 3, 3}
	if !reflect.DeepEqual(data.Indices, want) {
		t.Errorf("Indices = %v, want %v", data.Indices, want)
	}
	if len(data.Positions) != 3 {
		t.Errorf("len(Positions) = %d, want 3", len(data.Positions))
	}
}

func TestParticleStore_CreatePackedData_ManyParticles(t *testing.T) {
	grid := NewGrid(3, [2]uint16{6, 6})
	store := NewParticleStore(grid)

	p1 := Particle{Position: mgl32.Vec2{0.0, 1.0}}
	p2 := Particle{Position: mgl32.Vec2{3.0, 3.0}, Velocity: mgl32.Vec2{1.2, 3.4}}
	p3 := Particle{Position: mgl32.Vec2{5.1, 4.3}}
	if err := store.AddParticles([]Particle{p1, p2, p3}); err != nil {
		t.Fatal(err)
	}

	data, err := store.CreatePackedData()
	if err != nil {
		t.Fatal(err)
	}

	want := []uint32{0, 0, 1, 1, 1, 1, 3, 3, 3, 3, 3}
	if !reflect.DeepEqual(data.Indices, want) {
		t.Errorf("Indices = %v, want %v", data.Indices, want)
	}
	if len(data.Positions) != 3 {
		t.Fatalf("len(Positions) = %d, want 3", len(data.Positions))
	}
	if data.Positions[2] != p3.Position {
		t.Errorf("Positions[2] = %v, want %v", data.Positions[2], p3.Position)
	}
	if data.Velocities[1] != p2.Velocity {
		t.Errorf("Velocities[1] = %v, want %v", data.Velocities[1], p2.Velocity)
	}
}

func TestParticleStore_CreatePackedData_OffscreenParticleDropped(t *testing.T) {
	grid := NewGrid(3, [2]uint16{6, 6})
	store := NewParticleStore(grid)
	onscreen := Particle{Position: mgl32.Vec2{6.1, 6.1}} // cell (2,2), the inclusive top-right cell
	offscreen := Particle{Position: mgl32.Vec2{9.1, 9.1}} // cell (3,3), outside the 3x3 active grid
	if err := store.AddParticles([]Particle{onscreen, offscreen}); err != nil {
		t.Fatal(err)
	}

	data, err := store.CreatePackedData()
	if err != nil {
		t.Fatal(err)
	}

	want := []uint32{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	if !reflect.DeepEqual(data.Indices, want) {
		t.Errorf("Indices = %v, want %v", data.Indices, want)
	}
	if len(data.Positions) != 1 || data.Positions[0] != onscreen.Position {
		t.Errorf("Positions = %v, want only the onscreen particle", data.Positions)
	}
	// The offscreen particle is still resident in the store, just absent from
	// the packed GPU view, since CreatePackedData only walks active cells.
	if store.Len() != 2 {
		t.Errorf("store.Len() = %d, want 2 (offscreen particle stays resident)", store.Len())
	}
}

func TestParticleStore_MaxParticlesPerFrame(t *testing.T) {
	grid := NewGrid(2, [2]uint16{6, 6})
	store := NewParticleStore(grid)
	if got := store.MaxParticlesPerFrame(); got != 74 {
		t.Errorf("MaxParticlesPerFrame() = %d, want 74", got)
	}
}

func TestParticleStore_AddParticlesToCell_Overwrites(t *testing.T) {
	grid := NewGrid(3, [2]uint16{6, 6})
	store := NewParticleStore(grid)
	cell := CellCoord{X: 0, Y: 0}
	store.AddParticlesToCell(cell, []mgl32.Vec2{{1, 1}}, []mgl32.Vec2{{0, 0}})
	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", store.Len())
	}
	store.AddParticlesToCell(cell, []mgl32.Vec2{{2, 2}, {3, 3}}, []mgl32.Vec2{{0, 0}, {0, 0}})
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2 after overwrite", store.Len())
	}
}

func TestParticleStore_Remove(t *testing.T) {
	grid := NewGrid(3, [2]uint16{6, 6})
	store := NewParticleStore(grid)
	cell := CellCoord{X: 0, Y: 0}
	store.AddParticlesToCell(cell, []mgl32.Vec2{{1, 1}}, []mgl32.Vec2{{0, 0}})
	store.Remove(cell)
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after Remove", store.Len())
	}
}
