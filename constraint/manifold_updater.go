package constraint

import (
	"github.com/akmonengine/oimo/actor"
	"github.com/akmonengine/oimo/narrowphase"
	"github.com/go-gl/mathgl/mgl64"
)

// ManifoldUpdater merges narrowphase results into a manifold, matching the
// new points against the old ones so their impulses can be warm started.
type ManifoldUpdater struct {
	manifold *Manifold

	oldPoints    [MAX_MANIFOLD_POINTS]ManifoldPoint
	numOldPoints int
}

func NewManifoldUpdater(manifold *Manifold) *ManifoldUpdater {
	return &ManifoldUpdater{manifold: manifold}
}

// Update picks a total or an incremental update for the result.
func (mu *ManifoldUpdater) Update(result *narrowphase.Result, tf1, tf2 actor.Transform) {
	if result.NumPoints == 0 {
		mu.manifold.Clear()
		return
	}

	mu.manifold.buildBasis(result.Normal)
	if result.Incremental && mu.manifold.numPoints > 0 {
		mu.IncrementalUpdate(result, tf1, tf2)
	} else {
		mu.TotalUpdate(result, tf1, tf2)
	}
}

// TotalUpdate replaces every point with the result's. Impulses of old points
// whose id reappears are kept.
func (mu *ManifoldUpdater) TotalUpdate(result *narrowphase.Result, tf1, tf2 actor.Transform) {
	mu.saveOldData()

	m := mu.manifold
	m.numPoints = result.NumPoints
	for i := 0; i < result.NumPoints; i++ {
		p := &m.points[i]
		p.initialize(result.Points[i], tf1, tf2)
		mu.updateByID(p)
	}
	for i := result.NumPoints; i < MAX_MANIFOLD_POINTS; i++ {
		m.points[i].clear()
	}
}

// IncrementalUpdate keeps the existing points that are still valid and
// adds or refreshes the result's points by proximity.
func (mu *ManifoldUpdater) IncrementalUpdate(result *narrowphase.Result, tf1, tf2 actor.Transform) {
	m := mu.manifold
	m.updateDepthsAndPositions(tf1, tf2)
	for i := 0; i < m.numPoints; i++ {
		m.points[i].warmStarted = true
	}

	mu.removeOutdatedPoints()

	for i := 0; i < result.NumPoints; i++ {
		rp := result.Points[i]
		if index := mu.findNearest(rp, tf1, tf2); index >= 0 {
			m.points[index].refresh(rp, tf1, tf2)
		} else {
			mu.addPoint(rp, tf1, tf2)
		}
	}
}

func (mu *ManifoldUpdater) saveOldData() {
	m := mu.manifold
	mu.numOldPoints = m.numPoints
	for i := 0; i < m.numPoints; i++ {
		mu.oldPoints[i] = m.points[i]
	}
}

func (mu *ManifoldUpdater) updateByID(p *ManifoldPoint) {
	for i := 0; i < mu.numOldPoints; i++ {
		if mu.oldPoints[i].id == p.id {
			p.impulse = mu.oldPoints[i].impulse
			p.warmStarted = true
			return
		}
	}
}

func (mu *ManifoldUpdater) removePoint(index int) {
	m := mu.manifold
	m.numPoints--
	last := m.numPoints
	if index != last {
		m.points[index], m.points[last] = m.points[last], m.points[index]
	}
	m.points[last].clear()
}

// removeOutdatedPoints drops the points that separated or slid more than
// ContactPersistenceThreshold since they were recorded.
func (mu *ManifoldUpdater) removeOutdatedPoints() {
	m := mu.manifold
	const thresholdSq = actor.ContactPersistenceThreshold * actor.ContactPersistenceThreshold

	for index := m.numPoints - 1; index >= 0; index-- {
		p := &m.points[index]
		diff := p.pos1.Sub(p.pos2)
		dotN := diff.Dot(m.normal)

		if -dotN > actor.ContactPersistenceThreshold {
			mu.removePoint(index)
			continue
		}

		lateral := diff.Sub(m.normal.Mul(dotN))
		if lateral.LenSqr() > thresholdSq {
			mu.removePoint(index)
		}
	}
}

func (mu *ManifoldUpdater) findNearest(rp narrowphase.ResultPoint, tf1, tf2 actor.Transform) int {
	m := mu.manifold
	nearestSq := actor.ContactPersistenceThreshold * actor.ContactPersistenceThreshold
	index := -1

	rp1 := rp.Position1.Sub(tf1.Position)
	rp2 := rp.Position2.Sub(tf2.Position)
	for i := 0; i < m.numPoints; i++ {
		p := &m.points[i]
		d := min(p.relPos1.Sub(rp1).LenSqr(), p.relPos2.Sub(rp2).LenSqr())
		if d < nearestSq {
			nearestSq = d
			index = i
		}
	}
	return index
}

func (mu *ManifoldUpdater) addPoint(rp narrowphase.ResultPoint, tf1, tf2 actor.Transform) {
	m := mu.manifold
	if m.numPoints < MAX_MANIFOLD_POINTS {
		m.points[m.numPoints].initialize(rp, tf1, tf2)
		m.numPoints++
		return
	}

	if target := mu.computeTargetIndex(rp.Position1.Sub(tf1.Position)); target >= 0 {
		m.points[target].initialize(rp, tf1, tf2)
	}
}

// computeTargetIndex chooses the point to replace by the new one at
// relative position rp1: the deepest point is always kept, and the
// replacement must not shrink the contact area. Returns -1 when the new
// point should be dropped.
func (mu *ManifoldUpdater) computeTargetIndex(rp1 mgl64.Vec3) int {
	p := &mu.manifold.points

	deepest := 0
	for i := 1; i < MAX_MANIFOLD_POINTS; i++ {
		if p[i].depth > p[deepest].depth {
			deepest = i
		}
	}

	areas := [MAX_MANIFOLD_POINTS]float64{
		quadAreaFast(p[1].relPos1, p[2].relPos1, p[3].relPos1, rp1),
		quadAreaFast(p[0].relPos1, p[2].relPos1, p[3].relPos1, rp1),
		quadAreaFast(p[0].relPos1, p[1].relPos1, p[3].relPos1, rp1),
		quadAreaFast(p[0].relPos1, p[1].relPos1, p[2].relPos1, rp1),
	}

	target := -1
	best := quadAreaFast(p[0].relPos1, p[1].relPos1, p[2].relPos1, p[3].relPos1)
	for i, area := range areas {
		if i != deepest && area >= best {
			best = area
			target = i
		}
	}
	return target
}

// quadAreaFast returns the largest squared cross product of the three ways
// to pair the points into diagonals. It is proportional to the squared area
// of the quadrilateral and does not depend on the order of the points.
func quadAreaFast(p1, p2, p3, p4 mgl64.Vec3) float64 {
	a1 := p2.Sub(p1).Cross(p4.Sub(p3)).LenSqr()
	a2 := p3.Sub(p1).Cross(p4.Sub(p2)).LenSqr()
	a3 := p4.Sub(p1).Cross(p3.Sub(p2)).LenSqr()
	return max(a1, a2, a3)
}
