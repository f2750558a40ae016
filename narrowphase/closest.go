package narrowphase

import (
	"math"

	"github.com/akmonengine/oimo/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// closestOnSegment returns the point of [p, q] nearest to x and its parameter.
func closestOnSegment(x, p, q mgl64.Vec3) (mgl64.Vec3, float64) {
	d := q.Sub(p)
	len2 := d.LenSqr()
	if len2 < actor.Epsilon {
		return p, 0
	}
	t := actor.Clamp(x.Sub(p).Dot(d)/len2, 0, 1)
	return p.Add(d.Mul(t)), t
}

// closestSegmentSegment returns the closest points of [p1, q1] and [p2, q2].
// Degenerate segments are treated as points.
func closestSegmentSegment(p1, q1, p2, q2 mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.LenSqr()
	e := d2.LenSqr()
	f := d2.Dot(r)

	var s, t float64
	switch {
	case a < actor.Epsilon && e < actor.Epsilon:
		return p1, p2
	case a < actor.Epsilon:
		t = actor.Clamp(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e < actor.Epsilon {
			s = actor.Clamp(-c/a, 0, 1)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b

			// Segments parallèles : s arbitraire
			if denom > actor.Epsilon {
				s = actor.Clamp((b*f-c*e)/denom, 0, 1)
			}
			t = (b*s + f) / e

			if t < 0 {
				t = 0
				s = actor.Clamp(-c/a, 0, 1)
			} else if t > 1 {
				t = 1
				s = actor.Clamp((b-c)/a, 0, 1)
			}
		}
	}

	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}

// closestOnTriangle returns the point of triangle (a, b, c) nearest to p by
// classifying p against the seven Voronoi regions of the triangle.
func closestOnTriangle(p, a, b, c mgl64.Vec3) mgl64.Vec3 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return a.Add(ab.Mul(d1 / (d1 - d3)))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return a.Add(ac.Mul(d2 / (d2 - d6)))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		return b.Add(c.Sub(b).Mul((d4 - d3) / ((d4 - d3) + (d5 - d6))))
	}

	// Intérieur du triangle
	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w))
}

// closestSegmentTriangle returns the closest points of segment [p, q] and a triangle.
func closestSegmentTriangle(p, q mgl64.Vec3, tri *actor.Triangle) (mgl64.Vec3, mgl64.Vec3) {
	// Le segment traverse le plan à l'intérieur du triangle
	dp := p.Sub(tri.V0).Dot(tri.Normal)
	dq := q.Sub(tri.V0).Dot(tri.Normal)
	if dp*dq <= 0 && math.Abs(dp-dq) > actor.Epsilon {
		x := p.Add(q.Sub(p).Mul(dp / (dp - dq)))
		onTri := closestOnTriangle(x, tri.V0, tri.V1, tri.V2)
		if onTri.Sub(x).LenSqr() < actor.Epsilon*actor.Epsilon {
			return x, x
		}
	}

	bestSeg := p
	bestTri := closestOnTriangle(p, tri.V0, tri.V1, tri.V2)
	best := bestTri.Sub(p).LenSqr()

	if c := closestOnTriangle(q, tri.V0, tri.V1, tri.V2); c.Sub(q).LenSqr() < best {
		bestSeg, bestTri, best = q, c, c.Sub(q).LenSqr()
	}
	for i := 0; i < 3; i++ {
		s, e := closestSegmentSegment(p, q, tri.Vertex(i), tri.Vertex((i+1)%3))
		if d := e.Sub(s).LenSqr(); d < best {
			bestSeg, bestTri, best = s, e, d
		}
	}
	return bestSeg, bestTri
}

// ============================================================================
// Clipping
// ============================================================================

const maxPolygonVertices = 12

// polygon is a fixed-capacity convex polygon used by the clipping routines.
type polygon struct {
	v [maxPolygonVertices]mgl64.Vec3
	n int
}

func (p *polygon) add(v mgl64.Vec3) {
	if p.n < maxPolygonVertices {
		p.v[p.n] = v
		p.n++
	}
}

// clip keeps the part of p where planeNormal·x <= offset (Sutherland-Hodgman).
func (p *polygon) clip(planeNormal mgl64.Vec3, offset float64) {
	if p.n == 0 {
		return
	}

	in := *p
	p.n = 0
	for i := 0; i < in.n; i++ {
		current := in.v[i]
		next := in.v[(i+1)%in.n]

		currentDist := offset - current.Dot(planeNormal)
		nextDist := offset - next.Dot(planeNormal)

		if currentDist >= 0 {
			p.add(current)
			// Next is outside → add intersection
			if nextDist < 0 {
				p.add(current.Add(next.Sub(current).Mul(currentDist / (currentDist - nextDist))))
			}
		} else if nextDist >= 0 {
			p.add(current.Add(next.Sub(current).Mul(currentDist / (currentDist - nextDist))))
		}
	}
}

// reduceExtremes picks at most 4 indices among 2D coordinates (xs, ys): the
// extremes along the two diagonals. Duplicates are removed.
func reduceExtremes(xs, ys []float64) ([4]int, int) {
	var idx [4]int
	minA, maxA, minB, maxB := 0, 0, 0, 0
	for i := 1; i < len(xs); i++ {
		a, b := xs[i]+ys[i], ys[i]-xs[i]
		if a < xs[minA]+ys[minA] {
			minA = i
		}
		if a > xs[maxA]+ys[maxA] {
			maxA = i
		}
		if b < ys[minB]-xs[minB] {
			minB = i
		}
		if b > ys[maxB]-xs[maxB] {
			maxB = i
		}
	}

	n := 0
	for _, i := range [4]int{maxA, maxB, minA, minB} {
		dup := false
		for k := 0; k < n; k++ {
			if idx[k] == i {
				dup = true
				break
			}
		}
		if !dup {
			idx[n] = i
			n++
		}
	}
	return idx, n
}
