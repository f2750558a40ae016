package broadphase

// BruteForce tests every unordered pair of proxies, O(n²).
type BruteForce struct {
	proxyArena
}

func NewBruteForce() *BruteForce {
	return &BruteForce{proxyArena: newProxyArena()}
}

func (bf *BruteForce) Type() Type { return TypeBruteForce }

func (bf *BruteForce) Incremental() bool { return false }

// CollectPairs reports pairs in proxy-list discovery order.
func (bf *BruteForce) CollectPairs() {
	bf.resetPairs()

	for id1 := bf.head; id1 >= 0; id1 = bf.proxies[id1].next {
		p1 := &bf.proxies[id1]
		for id2 := p1.next; id2 >= 0; id2 = bf.proxies[id2].next {
			p2 := &bf.proxies[id2]
			bf.testCount++
			if p1.AABB.Overlaps(p2.AABB) {
				bf.addPair(p1, p2)
			}
		}
	}
}
