// Package broadphase finds the pairs of shapes whose bounding boxes overlap.
//
// Two backends share the same proxy arena and pair pool: BruteForce tests every
// unordered pair, SpatialHash buckets proxies into a hashed uniform grid first.
package broadphase

import (
	"github.com/akmonengine/oimo/actor"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

const (
	MAX_PROXIES     = 128
	MAX_PROXY_PAIRS = 256
)

var (
	ErrProxyPoolExhausted = errors.New("broadphase: proxy pool exhausted")
	ErrPairPoolExhausted  = errors.New("broadphase: pair pool exhausted")
	ErrUnknownProxy       = errors.New("broadphase: unknown proxy")
)

// Type identifies a backend.
type Type uint8

const (
	TypeBruteForce Type = iota
	TypeSpatialHash
)

// BroadPhase is the interface shared by all backends. Proxies are addressed
// by stable integer handles.
type BroadPhase interface {
	Type() Type
	CreateProxy(userData any, aabb actor.AABB) (int, error)
	DestroyProxy(id int) error
	// MoveProxy updates the proxy box. displacement is accepted for
	// predictive backends; none of the current ones use it.
	MoveProxy(id int, aabb actor.AABB, displacement mgl64.Vec3)
	Proxy(id int) *Proxy
	NumProxies() int

	// CollectPairs rebuilds the candidate pair list.
	CollectPairs()
	Pairs() []Pair
	// PairOverflow is the number of overlapping pairs dropped during the last collect.
	PairOverflow() int
	// TestCount is the number of AABB tests done by the last collect.
	TestCount() int
	// Incremental backends keep pairs alive between frames; the others rebuild them.
	Incremental() bool
	IsOverlapping(id1, id2 int) bool

	RayCast(begin, end mgl64.Vec3, fn func(p *Proxy))
	AABBTest(aabb actor.AABB, fn func(p *Proxy))
}

// New returns a backend of the given type. Hash parameters are ignored by BruteForce.
func New(t Type, cellSize float64, tableSize int) BroadPhase {
	if t == TypeSpatialHash {
		return NewSpatialHash(cellSize, tableSize)
	}
	return NewBruteForce()
}
