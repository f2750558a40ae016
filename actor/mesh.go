package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Triangle is one face of a static mesh, in mesh-local space.
type Triangle struct {
	V0, V1, V2 mgl64.Vec3
	Normal     mgl64.Vec3
	Bounds     AABB
}

// Vertex returns V0, V1 or V2.
func (t *Triangle) Vertex(i int) mgl64.Vec3 {
	switch i {
	case 0:
		return t.V0
	case 1:
		return t.V1
	}
	return t.V2
}

// StaticMesh is an immutable triangle soup indexed by a BVH. It has no
// volume and can only be attached to static bodies in practice.
type StaticMesh struct {
	triangles []Triangle
	bounds    AABB
	bvh       BVH
}

// NewStaticMesh builds a mesh from an indexed triangle list. Degenerate
// triangles are skipped.
func NewStaticMesh(vertices []mgl64.Vec3, indices []int) (*StaticMesh, error) {
	if len(indices)%3 != 0 {
		return nil, errors.Wrapf(ErrInvalidGeometry, "index count %d is not a multiple of 3", len(indices))
	}
	if len(indices)/3 > BvhMaxTriangles {
		return nil, errors.Wrapf(ErrTooManyTriangles, "%d triangles, cap is %d", len(indices)/3, BvhMaxTriangles)
	}

	m := &StaticMesh{triangles: make([]Triangle, 0, len(indices)/3)}
	for i := 0; i < len(indices); i += 3 {
		for _, idx := range indices[i : i+3] {
			if idx < 0 || idx >= len(vertices) {
				return nil, errors.Wrapf(ErrInvalidGeometry, "vertex index %d out of range", idx)
			}
		}
		v0, v1, v2 := vertices[indices[i]], vertices[indices[i+1]], vertices[indices[i+2]]
		n := v1.Sub(v0).Cross(v2.Sub(v0))
		if n.Len() < Epsilon {
			continue
		}
		m.triangles = append(m.triangles, Triangle{
			V0: v0, V1: v1, V2: v2,
			Normal: n.Normalize(),
			Bounds: NewAABBFromPoints(v0, v1, v2),
		})
	}
	if len(m.triangles) == 0 {
		return nil, ErrEmptyMesh
	}

	bounds := make([]AABB, len(m.triangles))
	centroids := make([]mgl64.Vec3, len(m.triangles))
	m.bounds = m.triangles[0].Bounds
	for i := range m.triangles {
		tri := &m.triangles[i]
		bounds[i] = tri.Bounds
		centroids[i] = tri.V0.Add(tri.V1).Add(tri.V2).Mul(1.0 / 3.0)
		m.bounds = m.bounds.Combine(tri.Bounds)
	}
	m.bvh = buildBVH(bounds, centroids)

	return m, nil
}

func (m *StaticMesh) Type() GeometryType { return GeometryStaticMesh }

func (m *StaticMesh) Volume() float64 { return 0 }

func (m *StaticMesh) InertiaCoeff() mgl64.Mat3 { return mgl64.Mat3{} }

func (m *StaticMesh) NumTriangles() int { return len(m.triangles) }

func (m *StaticMesh) Triangle(i int) *Triangle { return &m.triangles[i] }

// LocalBounds is the mesh AABB in local space.
func (m *StaticMesh) LocalBounds() AABB { return m.bounds }

func (m *StaticMesh) BVH() *BVH { return &m.bvh }

func (m *StaticMesh) ComputeAABB(tf Transform) AABB {
	return m.bounds.Transformed(tf)
}

// QueryTriangles appends the indices of triangles overlapping a local-space box,
// capped at BvhMaxQuery.
func (m *StaticMesh) QueryTriangles(aabb AABB, dst []int) []int {
	return m.bvh.Query(aabb, dst, BvhMaxQuery)
}

// RayCastLocal returns the closest front- or back-face hit using Möller–Trumbore
// on the BVH candidates.
func (m *StaticMesh) RayCastLocal(begin, end mgl64.Vec3) (RayCastHit, bool) {
	var buf [BvhMaxQuery]int
	candidates := m.QueryTriangles(NewAABBFromPoints(begin, end), buf[:0])

	d := end.Sub(begin)
	best := RayCastHit{Fraction: math.MaxFloat64}
	found := false
	for _, idx := range candidates {
		tri := &m.triangles[idx]
		t, ok := intersectTriangle(begin, d, tri)
		if !ok || t >= best.Fraction {
			continue
		}
		normal := tri.Normal
		if normal.Dot(d) > 0 {
			normal = normal.Mul(-1)
		}
		best = RayCastHit{Position: begin.Add(d.Mul(t)), Normal: normal, Fraction: t}
		found = true
	}
	return best, found
}

func intersectTriangle(origin, dir mgl64.Vec3, tri *Triangle) (float64, bool) {
	e1 := tri.V1.Sub(tri.V0)
	e2 := tri.V2.Sub(tri.V0)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < Epsilon*Epsilon {
		return 0, false
	}
	invDet := 1 / det

	s := origin.Sub(tri.V0)
	u := s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * invDet
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}
