package broadphase

import (
	"github.com/akmonengine/oimo/actor"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Proxy is the broadphase view of a shape: a box and an opaque back-reference.
type Proxy struct {
	ID       int
	UserData any
	AABB     actor.AABB

	active bool
	prev   int
	next   int
}

// Pair is a candidate overlapping pair.
type Pair struct {
	Proxy1 *Proxy
	Proxy2 *Proxy
}

// proxyArena stores proxies in a fixed array linked into a doubly linked
// list by index. Destroyed slots go to a free list and are reused.
type proxyArena struct {
	proxies [MAX_PROXIES]Proxy
	used    int
	free    []int
	head    int
	tail    int
	count   int

	pairs     []Pair
	overflow  int
	testCount int
}

func newProxyArena() proxyArena {
	return proxyArena{
		head:  -1,
		tail:  -1,
		pairs: make([]Pair, 0, MAX_PROXY_PAIRS),
	}
}

func (a *proxyArena) CreateProxy(userData any, aabb actor.AABB) (int, error) {
	var id int
	switch {
	case len(a.free) > 0:
		id = a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
	case a.used < MAX_PROXIES:
		id = a.used
		a.used++
	default:
		return -1, errors.Wrapf(ErrProxyPoolExhausted, "capacity %d", MAX_PROXIES)
	}

	p := &a.proxies[id]
	*p = Proxy{ID: id, UserData: userData, AABB: aabb, active: true, prev: a.tail, next: -1}
	if a.tail >= 0 {
		a.proxies[a.tail].next = id
	} else {
		a.head = id
	}
	a.tail = id
	a.count++

	return id, nil
}

func (a *proxyArena) DestroyProxy(id int) error {
	p := a.Proxy(id)
	if p == nil {
		return errors.Wrapf(ErrUnknownProxy, "id %d", id)
	}

	if p.prev >= 0 {
		a.proxies[p.prev].next = p.next
	} else {
		a.head = p.next
	}
	if p.next >= 0 {
		a.proxies[p.next].prev = p.prev
	} else {
		a.tail = p.prev
	}

	*p = Proxy{ID: id, prev: -1, next: -1}
	a.free = append(a.free, id)
	a.count--
	return nil
}

func (a *proxyArena) MoveProxy(id int, aabb actor.AABB, _ mgl64.Vec3) {
	if p := a.Proxy(id); p != nil {
		p.AABB = aabb
	}
}

// Proxy returns the live proxy with this handle, or nil.
func (a *proxyArena) Proxy(id int) *Proxy {
	if id < 0 || id >= a.used || !a.proxies[id].active {
		return nil
	}
	return &a.proxies[id]
}

func (a *proxyArena) NumProxies() int { return a.count }

func (a *proxyArena) Pairs() []Pair { return a.pairs }

func (a *proxyArena) PairOverflow() int { return a.overflow }

func (a *proxyArena) TestCount() int { return a.testCount }

func (a *proxyArena) IsOverlapping(id1, id2 int) bool {
	p1, p2 := a.Proxy(id1), a.Proxy(id2)
	if p1 == nil || p2 == nil {
		return false
	}
	return p1.AABB.Overlaps(p2.AABB)
}

// each visits live proxies in creation order.
func (a *proxyArena) each(fn func(p *Proxy)) {
	for id := a.head; id >= 0; id = a.proxies[id].next {
		fn(&a.proxies[id])
	}
}

func (a *proxyArena) resetPairs() {
	for i := range a.pairs {
		a.pairs[i] = Pair{}
	}
	a.pairs = a.pairs[:0]
	a.overflow = 0
	a.testCount = 0
}

// addPair records a pair, or counts it as dropped when the pool is full.
func (a *proxyArena) addPair(p1, p2 *Proxy) bool {
	if len(a.pairs) >= MAX_PROXY_PAIRS {
		a.overflow++
		return false
	}
	a.pairs = append(a.pairs, Pair{Proxy1: p1, Proxy2: p2})
	return true
}

func (a *proxyArena) RayCast(begin, end mgl64.Vec3, fn func(p *Proxy)) {
	a.each(func(p *Proxy) {
		if p.AABB.IntersectsSegment(begin, end) {
			fn(p)
		}
	})
}

func (a *proxyArena) AABBTest(aabb actor.AABB, fn func(p *Proxy)) {
	a.each(func(p *Proxy) {
		if p.AABB.Overlaps(aabb) {
			fn(p)
		}
	})
}
