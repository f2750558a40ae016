package narrowphase

import (
	"math"

	"github.com/akmonengine/oimo/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Points reported per triangle are numbered triangleIndex*meshIDStride + k.
const meshIDStride = 8

// meshContacts keeps the deepest points found across the candidate triangles
// of one mesh query. The normal of the deepest point becomes the shared normal.
type meshContacts struct {
	points    [MAX_RESULT_POINTS]ResultPoint
	n         int
	normal    mgl64.Vec3
	bestDepth float64
}

// add records a point with its own normal; once full, it replaces the
// shallowest point if the new one is deeper.
func (m *meshContacts) add(pos1, pos2 mgl64.Vec3, depth float64, normal mgl64.Vec3, id int) {
	if m.n == 0 || depth > m.bestDepth {
		m.bestDepth = depth
		m.normal = normal
	}

	p := ResultPoint{Position1: pos1, Position2: pos2, Depth: depth, ID: id}
	if m.n < MAX_RESULT_POINTS {
		m.points[m.n] = p
		m.n++
		return
	}

	shallowest := 0
	for i := 1; i < m.n; i++ {
		if m.points[i].Depth < m.points[shallowest].Depth {
			shallowest = i
		}
	}
	if depth > m.points[shallowest].Depth {
		m.points[shallowest] = p
	}
}

func (m *meshContacts) write(result *Result) {
	if m.n == 0 {
		return
	}
	result.Normal = m.normal
	for i := 0; i < m.n; i++ {
		p := &m.points[i]
		result.addPoint(p.Position1, p.Position2, p.Depth, p.ID)
	}
}

// queryMesh collects the triangles of mesh (placed at meshTf) overlapping a
// world-space box.
func queryMesh(mesh *actor.StaticMesh, meshTf actor.Transform, worldAABB actor.AABB, dst []int) []int {
	local := worldAABB.Expand(actor.LinearSlop).Transformed(meshTf.Inverse())
	return mesh.QueryTriangles(local, dst)
}

// ============================================================================
// Sphere / Capsule
// ============================================================================

func detectSphereMesh(result *Result, s *actor.Sphere, mesh *actor.StaticMesh, tf1, tf2 actor.Transform) {
	var buf [actor.BvhMaxQuery]int
	candidates := queryMesh(mesh, tf2, s.ComputeAABB(tf1), buf[:0])

	radius := s.Radius()
	center := tf2.InvPoint(tf1.Position)

	var contacts meshContacts
	for _, ti := range candidates {
		tri := mesh.Triangle(ti)
		closest := closestOnTriangle(center, tri.V0, tri.V1, tri.V2)
		meshPointContact(&contacts, center, closest, radius, tri, tf2, ti*meshIDStride)
	}
	contacts.write(result)
}

func detectCapsuleMesh(result *Result, c *actor.Capsule, mesh *actor.StaticMesh, tf1, tf2 actor.Transform) {
	result.Incremental = true

	var buf [actor.BvhMaxQuery]int
	candidates := queryMesh(mesh, tf2, c.ComputeAABB(tf1), buf[:0])

	radius := c.Radius()
	wp, wq := c.Segment(tf1)
	p := tf2.InvPoint(wp)
	q := tf2.InvPoint(wq)

	var contacts meshContacts
	for _, ti := range candidates {
		tri := mesh.Triangle(ti)
		seg, closest := closestSegmentTriangle(p, q, tri)

		if seg.Sub(closest).LenSqr() > actor.Epsilon*actor.Epsilon {
			meshPointContact(&contacts, seg, closest, radius, tri, tf2, ti*meshIDStride)
			continue
		}

		// Le segment traverse le triangle : on pousse selon la normale
		// du côté du centre de la capsule, depuis l'extrémité la plus enfoncée.
		n := tri.Normal
		mid := p.Add(q).Mul(0.5)
		if mid.Sub(tri.V0).Dot(n) < 0 {
			n = n.Mul(-1)
		}
		dp := p.Sub(tri.V0).Dot(n)
		dq := q.Sub(tri.V0).Dot(n)
		deepest, below := p, dp
		if dq < dp {
			deepest, below = q, dq
		}
		onMesh := deepest.Sub(n.Mul(below))
		if !pointInTriangle(onMesh, tri) {
			onMesh = closest
			below = 0
		}

		worldN := tf2.Vector(n)
		pos1 := tf2.Point(deepest).Sub(worldN.Mul(radius))
		contacts.add(pos1, tf2.Point(onMesh), radius-below, worldN.Mul(-1), ti*meshIDStride)
	}
	contacts.write(result)
}

// meshPointContact is the sphere test between a local center and its closest
// point on a triangle. The normal points from the convex shape to the mesh.
func meshPointContact(contacts *meshContacts, center, closest mgl64.Vec3, radius float64, tri *actor.Triangle, meshTf actor.Transform, id int) {
	d := center.Sub(closest)
	len2 := d.LenSqr()
	if len2 >= radius*radius {
		return
	}

	dist := math.Sqrt(len2)
	n := tri.Normal
	if dist > actor.Epsilon {
		n = d.Mul(1 / dist)
	}

	worldN := meshTf.Vector(n)
	pos1 := meshTf.Point(center).Sub(worldN.Mul(radius))
	contacts.add(pos1, meshTf.Point(closest), radius-dist, worldN.Mul(-1), id)
}

func pointInTriangle(p mgl64.Vec3, tri *actor.Triangle) bool {
	c := closestOnTriangle(p, tri.V0, tri.V1, tri.V2)
	return c.Sub(p).LenSqr() < actor.Epsilon
}

// ============================================================================
// Box
// ============================================================================

// detectBoxMesh runs a separating axis test per triangle in box space: the
// three box faces, the triangle normal and the nine edge cross products.
func detectBoxMesh(result *Result, b *actor.Box, mesh *actor.StaticMesh, tf1, tf2 actor.Transform) {
	var buf [actor.BvhMaxQuery]int
	candidates := queryMesh(mesh, tf2, b.ComputeAABB(tf1), buf[:0])

	half := b.HalfExtents()
	// mesh local -> box local
	toBox := tf1.Inverse().Mul(tf2)

	var contacts meshContacts
	for _, ti := range candidates {
		src := mesh.Triangle(ti)
		tri := [3]mgl64.Vec3{toBox.Point(src.V0), toBox.Point(src.V1), toBox.Point(src.V2)}
		triN := toBox.Vector(src.Normal)
		boxTriangleContact(&contacts, half, tri, triN, tf1, ti*meshIDStride)
	}
	contacts.write(result)
}

// satAxis returns the penetration along axis and the axis oriented from the
// triangle toward the box. ok is false when the axis separates.
func satAxis(axis, half mgl64.Vec3, tri *[3]mgl64.Vec3) (float64, mgl64.Vec3, bool) {
	r := math.Abs(axis.X())*half.X() + math.Abs(axis.Y())*half.Y() + math.Abs(axis.Z())*half.Z()
	p0, p1, p2 := tri[0].Dot(axis), tri[1].Dot(axis), tri[2].Dot(axis)
	tMin := math.Min(p0, math.Min(p1, p2))
	tMax := math.Max(p0, math.Max(p1, p2))
	if tMin > r || tMax < -r {
		return 0, axis, false
	}

	up := tMax + r   // la boîte sort vers +axis
	down := r - tMin // la boîte sort vers -axis
	if up <= down {
		return up, axis, true
	}
	return down, axis.Mul(-1), true
}

func boxTriangleContact(contacts *meshContacts, half mgl64.Vec3, tri [3]mgl64.Vec3, triN mgl64.Vec3, boxTf actor.Transform, baseID int) {
	const (
		kindBox = iota
		kindTriangle
		kindEdge
	)

	minDepth, minScore := math.Inf(1), math.Inf(1)
	var minAxis mgl64.Vec3
	kind, boxAxis, triEdge := kindBox, 0, 0

	var axes [3]mgl64.Vec3
	for i := 0; i < 3; i++ {
		axes[i][i] = 1
		depth, axis, ok := satAxis(axes[i], half, &tri)
		if !ok {
			return
		}
		if depth < minScore {
			minDepth, minScore, minAxis, kind, boxAxis = depth, depth, axis, kindBox, i
		}
	}

	depth, axis, ok := satAxis(triN, half, &tri)
	if !ok {
		return
	}
	if depth < minScore {
		minDepth, minScore, minAxis, kind = depth, depth, axis, kindTriangle
	}

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			edge := tri[(j+1)%3].Sub(tri[j])
			cross := axes[i].Cross(edge)
			len2 := cross.LenSqr()
			if len2 < actor.Epsilon {
				continue
			}
			depth, axis, ok := satAxis(cross.Mul(1/math.Sqrt(len2)), half, &tri)
			if !ok {
				return
			}
			if score := depth * actor.EdgeBiasMult; score < minScore {
				minDepth, minScore, minAxis, kind, boxAxis, triEdge = depth, score, axis, kindEdge, i, j
			}
		}
	}

	// minAxis va du triangle vers la boîte
	worldN := boxTf.Vector(minAxis).Mul(-1)
	emit := func(onBox, onMesh mgl64.Vec3, depth float64, k int) {
		contacts.add(boxTf.Point(onBox), boxTf.Point(onMesh), depth, worldN, baseID+k)
	}

	switch kind {
	case kindEdge:
		// Arête de la boîte la plus proche du triangle
		var center mgl64.Vec3
		for i := 0; i < 3; i++ {
			if i != boxAxis {
				center[i] = -actor.Sign(minAxis[i]) * half[i]
			}
		}
		var d mgl64.Vec3
		d[boxAxis] = half[boxAxis]
		onBox, onMesh := closestSegmentSegment(center.Sub(d), center.Add(d), tri[triEdge], tri[(triEdge+1)%3])
		emit(onBox, onMesh, minDepth, meshIDStride-1)

	case kindBox:
		// Face de la boîte face au triangle, le triangle est découpé dessus
		refNormal := minAxis.Mul(-1)
		faceOffset := half[boxAxis]
		u, v := (boxAxis+1)%3, (boxAxis+2)%3

		var poly polygon
		for k := 0; k < 3; k++ {
			poly.add(tri[k])
		}
		poly.clip(axes[u], half[u])
		poly.clip(axes[u].Mul(-1), half[u])
		poly.clip(axes[v], half[v])
		poly.clip(axes[v].Mul(-1), half[v])

		for k := 0; k < poly.n; k++ {
			p := poly.v[k]
			depth := faceOffset - p.Dot(refNormal)
			if depth <= 0 {
				continue
			}
			emit(p.Add(refNormal.Mul(depth)), p, depth, k)
		}

	case kindTriangle:
		// Face incidente de la boîte, découpée par les côtés du triangle
		incAxis := 0
		for i := 1; i < 3; i++ {
			if math.Abs(minAxis[i]) > math.Abs(minAxis[incAxis]) {
				incAxis = i
			}
		}
		incSign := -actor.Sign(minAxis[incAxis])
		u, v := (incAxis+1)%3, (incAxis+2)%3
		var c, du, dv mgl64.Vec3
		c[incAxis] = incSign * half[incAxis]
		du[u] = half[u]
		dv[v] = half[v]

		var poly polygon
		poly.add(c.Add(du).Add(dv))
		poly.add(c.Sub(du).Add(dv))
		poly.add(c.Sub(du).Sub(dv))
		poly.add(c.Add(du).Sub(dv))

		centroid := tri[0].Add(tri[1]).Add(tri[2]).Mul(1.0 / 3)
		for k := 0; k < 3; k++ {
			a, b := tri[k], tri[(k+1)%3]
			side := b.Sub(a).Cross(minAxis)
			if side.LenSqr() < actor.Epsilon {
				continue
			}
			side = side.Normalize()
			if side.Dot(centroid.Sub(a)) > 0 {
				side = side.Mul(-1)
			}
			poly.clip(side, side.Dot(a))
		}

		for k := 0; k < poly.n; k++ {
			p := poly.v[k]
			depth := tri[0].Sub(p).Dot(minAxis)
			if depth <= 0 {
				continue
			}
			emit(p, p.Add(minAxis.Mul(depth)), depth, k)
		}
	}
}
