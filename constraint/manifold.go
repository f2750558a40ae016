package constraint

import (
	"math"

	"github.com/akmonengine/oimo/actor"
	"github.com/akmonengine/oimo/narrowphase"
	"github.com/go-gl/mathgl/mgl64"
)

const MAX_MANIFOLD_POINTS = narrowphase.MAX_RESULT_POINTS

// ContactImpulse stores the impulses accumulated on one manifold point,
// carried over to the next step for warm starting.
type ContactImpulse struct {
	// Normal, tangent and binormal impulses of the velocity solve
	ImpulseN float64
	ImpulseT float64
	ImpulseB float64
	// Normal impulse of the position solve
	ImpulseP float64
	// ImpulseL is the lateral impulse in world space. The tangent basis is
	// rebuilt from the normal every step, so friction is re-projected from it.
	ImpulseL mgl64.Vec3
}

func (ci *ContactImpulse) Clear() {
	*ci = ContactImpulse{}
}

// ManifoldPoint is one persistent contact point.
type ManifoldPoint struct {
	// body-local positions
	localPos1 mgl64.Vec3
	localPos2 mgl64.Vec3
	// positions relative to the body centers, in world orientation
	relPos1 mgl64.Vec3
	relPos2 mgl64.Vec3
	pos1    mgl64.Vec3
	pos2    mgl64.Vec3

	depth       float64
	impulse     ContactImpulse
	warmStarted bool
	disabled    bool
	id          int
}

func (mp *ManifoldPoint) clear() {
	*mp = ManifoldPoint{id: -1}
}

func (mp *ManifoldPoint) initialize(rp narrowphase.ResultPoint, tf1, tf2 actor.Transform) {
	mp.refresh(rp, tf1, tf2)
	mp.impulse.Clear()
	mp.id = rp.ID
	mp.warmStarted = false
	mp.disabled = false
}

// refresh overwrites the geometry of the point and keeps its impulse.
func (mp *ManifoldPoint) refresh(rp narrowphase.ResultPoint, tf1, tf2 actor.Transform) {
	mp.pos1 = rp.Position1
	mp.pos2 = rp.Position2
	mp.relPos1 = mp.pos1.Sub(tf1.Position)
	mp.relPos2 = mp.pos2.Sub(tf2.Position)
	mp.localPos1 = tf1.InvVector(mp.relPos1)
	mp.localPos2 = tf2.InvVector(mp.relPos2)
	mp.depth = rp.Depth
}

// Position1 is the world position of the point on the first shape.
func (mp *ManifoldPoint) Position1() mgl64.Vec3 { return mp.pos1 }

// Position2 is the world position of the point on the second shape.
func (mp *ManifoldPoint) Position2() mgl64.Vec3 { return mp.pos2 }

// Depth is positive while the shapes penetrate.
func (mp *ManifoldPoint) Depth() float64 { return mp.depth }

func (mp *ManifoldPoint) Impulse() ContactImpulse { return mp.impulse }

func (mp *ManifoldPoint) NormalImpulse() float64 { return mp.impulse.ImpulseN }

func (mp *ManifoldPoint) TangentImpulse() float64 { return mp.impulse.ImpulseT }

func (mp *ManifoldPoint) BinormalImpulse() float64 { return mp.impulse.ImpulseB }

func (mp *ManifoldPoint) ID() int { return mp.id }

func (mp *ManifoldPoint) IsWarmStarted() bool { return mp.warmStarted }

// IsEnabled reports whether the point took part in the last velocity solve.
func (mp *ManifoldPoint) IsEnabled() bool { return !mp.disabled }

// Manifold is the set of persistent contact points between two shapes.
// Normal points from the first shape toward the second one.
type Manifold struct {
	normal   mgl64.Vec3
	tangent  mgl64.Vec3
	binormal mgl64.Vec3

	points    [MAX_MANIFOLD_POINTS]ManifoldPoint
	numPoints int
}

func NewManifold() *Manifold {
	m := &Manifold{}
	m.Clear()
	return m
}

func (m *Manifold) Clear() {
	for i := range m.points {
		m.points[i].clear()
	}
	m.numPoints = 0
}

// buildBasis sets the normal and derives an orthonormal tangent and binormal.
func (m *Manifold) buildBasis(normal mgl64.Vec3) {
	m.normal = normal

	nx, ny, nz := normal.X(), normal.Y(), normal.Z()
	nx2, ny2, nz2 := nx*nx, ny*ny, nz*nz

	switch {
	case nx2 <= ny2 && nx2 <= nz2:
		invL := 1 / math.Sqrt(ny2+nz2)
		m.tangent = mgl64.Vec3{0, -nz * invL, ny * invL}
	case ny2 <= nz2:
		invL := 1 / math.Sqrt(nx2+nz2)
		m.tangent = mgl64.Vec3{nz * invL, 0, -nx * invL}
	default:
		invL := 1 / math.Sqrt(nx2+ny2)
		m.tangent = mgl64.Vec3{-ny * invL, nx * invL, 0}
	}
	m.binormal = normal.Cross(m.tangent)
}

// updateDepthsAndPositions moves the points with their bodies and
// recomputes the depths along the current normal.
func (m *Manifold) updateDepthsAndPositions(tf1, tf2 actor.Transform) {
	for i := 0; i < m.numPoints; i++ {
		p := &m.points[i]
		p.relPos1 = tf1.Vector(p.localPos1)
		p.relPos2 = tf2.Vector(p.localPos2)
		p.pos1 = p.relPos1.Add(tf1.Position)
		p.pos2 = p.relPos2.Add(tf2.Position)
		p.depth = p.pos1.Sub(p.pos2).Dot(m.normal)
	}
}

func (m *Manifold) Normal() mgl64.Vec3 { return m.normal }

func (m *Manifold) Tangent() mgl64.Vec3 { return m.tangent }

func (m *Manifold) Binormal() mgl64.Vec3 { return m.binormal }

func (m *Manifold) NumPoints() int { return m.numPoints }

// Point returns the i-th point; the pointer stays valid until the next update.
func (m *Manifold) Point(i int) *ManifoldPoint {
	return &m.points[i]
}

// Points returns the live points.
func (m *Manifold) Points() []ManifoldPoint {
	return m.points[:m.numPoints]
}

// Area returns the squared-area measure of the current points, as used by
// the eviction rule. Fewer than 3 points have no area.
func (m *Manifold) Area() float64 {
	switch m.numPoints {
	case 3:
		return quadAreaFast(m.points[0].relPos1, m.points[1].relPos1, m.points[2].relPos1, m.points[2].relPos1)
	case 4:
		return quadAreaFast(m.points[0].relPos1, m.points[1].relPos1, m.points[2].relPos1, m.points[3].relPos1)
	}
	return 0
}
