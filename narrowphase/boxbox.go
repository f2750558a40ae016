package narrowphase

import (
	"math"

	"github.com/akmonengine/oimo/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// ID reported for the single point of an edge-edge contact.
const edgeContactID = 4

// boxFrame is a box placed in world space.
type boxFrame struct {
	center mgl64.Vec3
	axes   [3]mgl64.Vec3
	half   mgl64.Vec3
}

func newBoxFrame(b *actor.Box, tf actor.Transform) boxFrame {
	basis := tf.Basis()
	return boxFrame{
		center: tf.Position,
		axes:   [3]mgl64.Vec3{basis.Col(0), basis.Col(1), basis.Col(2)},
		half:   b.HalfExtents(),
	}
}

// project returns the half length of the box shadow on axis.
func (f *boxFrame) project(axis mgl64.Vec3) float64 {
	return math.Abs(f.axes[0].Dot(axis))*f.half[0] +
		math.Abs(f.axes[1].Dot(axis))*f.half[1] +
		math.Abs(f.axes[2].Dot(axis))*f.half[2]
}

// supportEdge returns the center of the edge parallel to axes[along] that is
// furthest along dir.
func (f *boxFrame) supportEdge(along int, dir mgl64.Vec3) mgl64.Vec3 {
	p := f.center
	for i := 0; i < 3; i++ {
		if i == along {
			continue
		}
		p = p.Add(f.axes[i].Mul(actor.Sign(f.axes[i].Dot(dir)) * f.half[i]))
	}
	return p
}

// detectBoxBox runs the separating axis test on the 15 candidate axes. A face
// axis produces up to 4 points by clipping the incident face against the
// reference face; an edge axis produces one point between the two edges.
// Edge depths are scaled by EdgeBiasMult before being compared.
func detectBoxBox(result *Result, b1, b2 *actor.Box, tf1, tf2 actor.Transform) {
	box1 := newBoxFrame(b1, tf1)
	box2 := newBoxFrame(b2, tf2)
	c12 := box2.center.Sub(box1.center)

	minDepth := math.Inf(1)
	minScore := math.Inf(1)
	minID := -1
	var minAxis mgl64.Vec3

	// ========== AXES DES FACES ==========
	for id := 0; id < 6; id++ {
		var axis mgl64.Vec3
		if id < 3 {
			axis = box1.axes[id]
		} else {
			axis = box2.axes[id-3]
		}

		pc := c12.Dot(axis)
		depth := box1.project(axis) + box2.project(axis) - math.Abs(pc)
		if depth <= 0 {
			return
		}
		if depth < minScore {
			minDepth, minScore, minID = depth, depth, id
			minAxis = axis.Mul(actor.Sign(pc))
		}
	}

	// ========== AXES DES ARÊTES ==========
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			axis := box1.axes[i].Cross(box2.axes[j])
			len2 := axis.LenSqr()
			if len2 < actor.Epsilon {
				continue
			}
			axis = axis.Mul(1 / math.Sqrt(len2))

			pc := c12.Dot(axis)
			depth := box1.project(axis) + box2.project(axis) - math.Abs(pc)
			if depth <= 0 {
				return
			}
			if score := depth * actor.EdgeBiasMult; score < minScore {
				minDepth, minScore, minID = depth, score, 6+i*3+j
				minAxis = axis.Mul(actor.Sign(pc))
			}
		}
	}

	result.Normal = minAxis

	if minID >= 6 {
		boxBoxEdgeContact(result, &box1, &box2, (minID-6)/3, (minID-6)%3, minAxis, minDepth)
		return
	}
	boxBoxFaceContact(result, &box1, &box2, minID, minAxis)
}

// boxBoxEdgeContact finds the closest points of the two supporting edges.
func boxBoxEdgeContact(result *Result, box1, box2 *boxFrame, i, j int, normal mgl64.Vec3, depth float64) {
	e1 := box1.supportEdge(i, normal)
	e2 := box2.supportEdge(j, normal.Mul(-1))
	d1 := box1.axes[i].Mul(box1.half[i])
	d2 := box2.axes[j].Mul(box2.half[j])

	cp1, cp2 := closestSegmentSegment(e1.Sub(d1), e1.Add(d1), e2.Sub(d2), e2.Add(d2))
	result.addPoint(cp1, cp2, depth, edgeContactID)
}

// boxBoxFaceContact clips the incident face against the reference face of the
// box owning the separating axis.
func boxBoxFaceContact(result *Result, box1, box2 *boxFrame, id int, normal mgl64.Vec3) {
	ref, inc := box1, box2
	refNormal := normal
	swapped := id >= 3
	if swapped {
		ref, inc = box2, box1
		refNormal = normal.Mul(-1)
		id -= 3
	}

	// Repère de la face de référence
	u, v := (id+1)%3, (id+2)%3
	refCenter := ref.center.Add(refNormal.Mul(ref.half[id]))
	refU, refV := ref.axes[u], ref.axes[v]
	w, h := ref.half[u], ref.half[v]

	// Face incidente : la plus opposée à la normale de référence
	incAxis := 0
	incDot := inc.axes[0].Dot(refNormal)
	for k := 1; k < 3; k++ {
		if d := inc.axes[k].Dot(refNormal); math.Abs(d) > math.Abs(incDot) {
			incAxis, incDot = k, d
		}
	}
	incSign := -actor.Sign(incDot)
	incU, incV := (incAxis+1)%3, (incAxis+2)%3
	incCenter := inc.center.Add(inc.axes[incAxis].Mul(incSign * inc.half[incAxis]))
	du := inc.axes[incU].Mul(inc.half[incU])
	dv := inc.axes[incV].Mul(inc.half[incV])

	var poly polygon
	poly.add(incCenter.Add(du).Add(dv))
	poly.add(incCenter.Sub(du).Add(dv))
	poly.add(incCenter.Sub(du).Sub(dv))
	poly.add(incCenter.Add(du).Sub(dv))

	// Plans latéraux
	poly.clip(refU, w+refCenter.Dot(refU))
	poly.clip(refU.Mul(-1), w-refCenter.Dot(refU))
	poly.clip(refV, h+refCenter.Dot(refV))
	poly.clip(refV.Mul(-1), h-refCenter.Dot(refV))

	var (
		kept   [maxPolygonVertices]int
		depths [maxPolygonVertices]float64
		xs     [maxPolygonVertices]float64
		ys     [maxPolygonVertices]float64
	)
	n := 0
	for k := 0; k < poly.n; k++ {
		depth := refCenter.Sub(poly.v[k]).Dot(refNormal)
		if depth <= -actor.ContactPersistenceThreshold {
			continue
		}
		rel := poly.v[k].Sub(refCenter)
		kept[n], depths[n] = k, depth
		xs[n], ys[n] = rel.Dot(refU), rel.Dot(refV)
		n++
	}

	add := func(k int) {
		vertex := poly.v[kept[k]]
		onRef := vertex.Add(refNormal.Mul(depths[k]))
		if swapped {
			result.addPoint(vertex, onRef, depths[k], result.NumPoints)
		} else {
			result.addPoint(onRef, vertex, depths[k], result.NumPoints)
		}
	}

	if n <= MAX_RESULT_POINTS {
		for k := 0; k < n; k++ {
			add(k)
		}
		return
	}

	idx, count := reduceExtremes(xs[:n], ys[:n])
	for k := 0; k < count; k++ {
		add(idx[k])
	}
}
