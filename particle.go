package wrach

import "github.com/go-gl/mathgl/mgl32"

// Particle is a uniform-radius 2D pixel particle: a position and velocity,
// both single precision. Particles carry no identity or per-particle
// parameters (mass, radius) — every particle in the core is equivalent.
type Particle struct {
	Position mgl32.Vec2
	Velocity mgl32.Vec2
}

// MinDistance is the minimum permitted inter-particle centre distance,
// numerically one particle diameter in the normalised unit system.
const MinDistance = 1.0

// distanceEpsilon guards the MinDistance force computation against a
// division by zero when two particles occupy the exact same position.
const distanceEpsilon = 0.0001
