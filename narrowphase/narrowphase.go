// Package narrowphase computes contact points between pairs of geometries.
//
// Every detector reports a normal pointing from the first geometry toward the
// second one, and points as pairs (Position1 on the first, Position2 on the
// second) with a positive Depth when the geometries penetrate:
//
//	Depth = (Position1 - Position2) · Normal
//
// The CollisionMatrix only holds detectors for one ordering of each geometry
// pair. The reversed ordering reuses the same detector with Swapped set, which
// flips the normal and exchanges the point order on output.
package narrowphase

import (
	"github.com/akmonengine/oimo/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// MAX_RESULT_POINTS is the most points a detector reports for one pair.
const MAX_RESULT_POINTS = 4

// ResultPoint is one contact point produced by a detector.
type ResultPoint struct {
	Position1 mgl64.Vec3
	Position2 mgl64.Vec3
	Depth     float64
	// ID stays stable across frames for the same geometric feature.
	ID int
}

// Result is the output buffer of a detector.
type Result struct {
	Normal    mgl64.Vec3
	Points    [MAX_RESULT_POINTS]ResultPoint
	NumPoints int
	// Incremental results carry a single new point that is merged into the
	// existing manifold instead of replacing it.
	Incremental bool
}

func (r *Result) Clear() {
	r.NumPoints = 0
	r.Normal = mgl64.Vec3{}
	r.Incremental = false
}

// addPoint silently drops points beyond MAX_RESULT_POINTS.
func (r *Result) addPoint(pos1, pos2 mgl64.Vec3, depth float64, id int) {
	if r.NumPoints >= MAX_RESULT_POINTS {
		return
	}
	r.Points[r.NumPoints] = ResultPoint{Position1: pos1, Position2: pos2, Depth: depth, ID: id}
	r.NumPoints++
}

// swap turns a result computed for (g2, g1) into one for (g1, g2).
func (r *Result) swap() {
	r.Normal = r.Normal.Mul(-1)
	for i := 0; i < r.NumPoints; i++ {
		p := &r.Points[i]
		p.Position1, p.Position2 = p.Position2, p.Position1
	}
}

// ============================================================================
// Detectors
// ============================================================================

// DetectorType is the closed set of implemented geometry pairs.
type DetectorType uint8

const (
	DetectorSphereSphere DetectorType = iota
	DetectorSphereBox
	DetectorSphereCapsule
	DetectorBoxBox
	DetectorBoxCapsule
	DetectorCapsuleCapsule
	DetectorSphereMesh
	DetectorBoxMesh
	DetectorCapsuleMesh
)

var detectorNames = [...]string{
	DetectorSphereSphere:   "sphere-sphere",
	DetectorSphereBox:      "sphere-box",
	DetectorSphereCapsule:  "sphere-capsule",
	DetectorBoxBox:         "box-box",
	DetectorBoxCapsule:     "box-capsule",
	DetectorCapsuleCapsule: "capsule-capsule",
	DetectorSphereMesh:     "sphere-mesh",
	DetectorBoxMesh:        "box-mesh",
	DetectorCapsuleMesh:    "capsule-mesh",
}

func (t DetectorType) String() string {
	if int(t) < len(detectorNames) {
		return detectorNames[t]
	}
	return "unknown"
}

// Detector dispatches one geometry pair to its detection routine.
type Detector struct {
	Type DetectorType
	// Swapped is set when the detector receives its geometries in reverse order.
	Swapped bool
}

// Detect clears result and fills it with the contacts between g1 placed at
// tf1 and g2 placed at tf2. Geometry types must match the detector.
func (d Detector) Detect(result *Result, g1, g2 actor.Geometry, tf1, tf2 actor.Transform) {
	result.Clear()
	if d.Swapped {
		g1, g2 = g2, g1
		tf1, tf2 = tf2, tf1
	}

	switch d.Type {
	case DetectorSphereSphere:
		detectSphereSphere(result, g1.(*actor.Sphere), g2.(*actor.Sphere), tf1, tf2)
	case DetectorSphereBox:
		detectSphereBox(result, g1.(*actor.Sphere), g2.(*actor.Box), tf1, tf2)
	case DetectorSphereCapsule:
		detectSphereCapsule(result, g1.(*actor.Sphere), g2.(*actor.Capsule), tf1, tf2)
	case DetectorBoxBox:
		detectBoxBox(result, g1.(*actor.Box), g2.(*actor.Box), tf1, tf2)
	case DetectorBoxCapsule:
		detectBoxCapsule(result, g1.(*actor.Box), g2.(*actor.Capsule), tf1, tf2)
	case DetectorCapsuleCapsule:
		detectCapsuleCapsule(result, g1.(*actor.Capsule), g2.(*actor.Capsule), tf1, tf2)
	case DetectorSphereMesh:
		detectSphereMesh(result, g1.(*actor.Sphere), g2.(*actor.StaticMesh), tf1, tf2)
	case DetectorBoxMesh:
		detectBoxMesh(result, g1.(*actor.Box), g2.(*actor.StaticMesh), tf1, tf2)
	case DetectorCapsuleMesh:
		detectCapsuleMesh(result, g1.(*actor.Capsule), g2.(*actor.StaticMesh), tf1, tf2)
	}

	if d.Swapped {
		result.swap()
	}
}

// ============================================================================
// Collision matrix
// ============================================================================

// CollisionMatrix maps a pair of geometry types to its detector.
type CollisionMatrix struct {
	detectors [actor.GeometryTypeCount][actor.GeometryTypeCount]*Detector
}

func NewCollisionMatrix() *CollisionMatrix {
	m := &CollisionMatrix{}

	m.set(actor.GeometrySphere, actor.GeometrySphere, DetectorSphereSphere)
	m.set(actor.GeometrySphere, actor.GeometryBox, DetectorSphereBox)
	m.set(actor.GeometrySphere, actor.GeometryCapsule, DetectorSphereCapsule)
	m.set(actor.GeometryBox, actor.GeometryBox, DetectorBoxBox)
	m.set(actor.GeometryBox, actor.GeometryCapsule, DetectorBoxCapsule)
	m.set(actor.GeometryCapsule, actor.GeometryCapsule, DetectorCapsuleCapsule)
	m.set(actor.GeometrySphere, actor.GeometryStaticMesh, DetectorSphereMesh)
	m.set(actor.GeometryBox, actor.GeometryStaticMesh, DetectorBoxMesh)
	m.set(actor.GeometryCapsule, actor.GeometryStaticMesh, DetectorCapsuleMesh)

	return m
}

// set registers t for (a, b) and its swapped twin for (b, a).
func (m *CollisionMatrix) set(a, b actor.GeometryType, t DetectorType) {
	m.detectors[a][b] = &Detector{Type: t}
	if a != b {
		m.detectors[b][a] = &Detector{Type: t, Swapped: true}
	}
}

// Detector returns nil when the pair has no detector (mesh against mesh).
func (m *CollisionMatrix) Detector(t1, t2 actor.GeometryType) *Detector {
	if int(t1) >= actor.GeometryTypeCount || int(t2) >= actor.GeometryTypeCount {
		return nil
	}
	return m.detectors[t1][t2]
}
