package broadphase

import (
	"testing"

	"github.com/akmonengine/oimo/actor"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

func box(x, y, z, half float64) actor.AABB {
	h := mgl64.Vec3{half, half, half}
	c := mgl64.Vec3{x, y, z}
	return actor.AABB{Min: c.Sub(h), Max: c.Add(h)}
}

func pairIDs(pairs []Pair) map[[2]int]bool {
	set := make(map[[2]int]bool, len(pairs))
	for _, p := range pairs {
		a, b := p.Proxy1.ID, p.Proxy2.ID
		if a > b {
			a, b = b, a
		}
		set[[2]int{a, b}] = true
	}
	return set
}

func TestBruteForceCollectPairs(t *testing.T) {
	tests := []struct {
		name     string
		boxes    []actor.AABB
		expected [][2]int
	}{
		{"vide", nil, nil},
		{"un seul", []actor.AABB{box(0, 0, 0, 1)}, nil},
		{"chevauchement", []actor.AABB{box(0, 0, 0, 1), box(1.5, 0, 0, 1)}, [][2]int{{0, 1}}},
		{"contact", []actor.AABB{box(0, 0, 0, 1), box(2, 0, 0, 1)}, [][2]int{{0, 1}}},
		{"séparés", []actor.AABB{box(0, 0, 0, 1), box(3, 0, 0, 1)}, nil},
		{"chaîne", []actor.AABB{box(0, 0, 0, 1), box(1.5, 0, 0, 1), box(3, 0, 0, 1)}, [][2]int{{0, 1}, {1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bf := NewBruteForce()
			for _, b := range tt.boxes {
				if _, err := bf.CreateProxy(nil, b); err != nil {
					t.Fatalf("CreateProxy failed: %v", err)
				}
			}
			bf.CollectPairs()

			if len(bf.Pairs()) != len(tt.expected) {
				t.Fatalf("got %d pairs, want %d", len(bf.Pairs()), len(tt.expected))
			}
			for i, want := range tt.expected {
				p := bf.Pairs()[i]
				if p.Proxy1.ID != want[0] || p.Proxy2.ID != want[1] {
					t.Errorf("pair %d = (%d,%d), want (%d,%d)", i, p.Proxy1.ID, p.Proxy2.ID, want[0], want[1])
				}
			}

			n := len(tt.boxes)
			if bf.TestCount() != n*(n-1)/2 {
				t.Errorf("TestCount = %d, want %d", bf.TestCount(), n*(n-1)/2)
			}
		})
	}
}

func TestProxyCapacity(t *testing.T) {
	bf := NewBruteForce()
	for i := 0; i < MAX_PROXIES; i++ {
		id, err := bf.CreateProxy(i, box(float64(i)*3, 0, 0, 1))
		if err != nil {
			t.Fatalf("CreateProxy %d failed: %v", i, err)
		}
		if id != i {
			t.Fatalf("CreateProxy %d returned id %d", i, id)
		}
	}

	_, err := bf.CreateProxy(nil, box(0, 0, 0, 1))
	if !errors.Is(err, ErrProxyPoolExhausted) {
		t.Fatalf("expected ErrProxyPoolExhausted, got %v", err)
	}
	if bf.NumProxies() != MAX_PROXIES {
		t.Errorf("NumProxies = %d, want %d", bf.NumProxies(), MAX_PROXIES)
	}
	for i := 0; i < MAX_PROXIES; i++ {
		p := bf.Proxy(i)
		if p == nil || p.UserData != i {
			t.Fatalf("proxy %d corrupted after failed create", i)
		}
	}
}

func TestPairOverflow(t *testing.T) {
	bf := NewBruteForce()
	// 24 boîtes superposées : 276 paires
	for i := 0; i < 24; i++ {
		if _, err := bf.CreateProxy(nil, box(0, 0, 0, 1)); err != nil {
			t.Fatal(err)
		}
	}
	bf.CollectPairs()

	if len(bf.Pairs()) != MAX_PROXY_PAIRS {
		t.Errorf("got %d pairs, want %d", len(bf.Pairs()), MAX_PROXY_PAIRS)
	}
	if bf.PairOverflow() != 24*23/2-MAX_PROXY_PAIRS {
		t.Errorf("PairOverflow = %d, want %d", bf.PairOverflow(), 24*23/2-MAX_PROXY_PAIRS)
	}
}

func TestDestroyProxy(t *testing.T) {
	bf := NewBruteForce()
	a, _ := bf.CreateProxy("a", box(0, 0, 0, 1))
	b, _ := bf.CreateProxy("b", box(1, 0, 0, 1))
	c, _ := bf.CreateProxy("c", box(2, 0, 0, 1))

	if err := bf.DestroyProxy(b); err != nil {
		t.Fatalf("DestroyProxy failed: %v", err)
	}
	if bf.Proxy(b) != nil {
		t.Error("destroyed proxy still reachable")
	}
	if err := bf.DestroyProxy(b); !errors.Is(err, ErrUnknownProxy) {
		t.Errorf("double destroy: expected ErrUnknownProxy, got %v", err)
	}

	bf.CollectPairs()
	pairs := pairIDs(bf.Pairs())
	if len(pairs) != 1 || !pairs[[2]int{a, c}] {
		t.Errorf("unexpected pairs after destroy: %v", pairs)
	}

	// Le slot libéré est réutilisé
	d, err := bf.CreateProxy("d", box(5, 0, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if d != b {
		t.Errorf("expected slot %d to be reused, got %d", b, d)
	}
	if bf.NumProxies() != 3 {
		t.Errorf("NumProxies = %d, want 3", bf.NumProxies())
	}
}

func TestMoveProxy(t *testing.T) {
	bf := NewBruteForce()
	a, _ := bf.CreateProxy(nil, box(0, 0, 0, 1))
	b, _ := bf.CreateProxy(nil, box(5, 0, 0, 1))

	if bf.IsOverlapping(a, b) {
		t.Fatal("proxies should start apart")
	}
	bf.MoveProxy(b, box(1, 0, 0, 1), mgl64.Vec3{-4, 0, 0})
	if !bf.IsOverlapping(a, b) {
		t.Error("proxies should overlap after move")
	}
	if bf.IsOverlapping(a, 42) {
		t.Error("unknown proxy should never overlap")
	}
}

func TestProxyQueries(t *testing.T) {
	bf := NewBruteForce()
	bf.CreateProxy(0, box(0, 0, 0, 1))
	bf.CreateProxy(1, box(5, 0, 0, 1))
	bf.CreateProxy(2, box(0, 5, 0, 1))

	t.Run("raycast", func(t *testing.T) {
		var hits []int
		bf.RayCast(mgl64.Vec3{-10, 0, 0}, mgl64.Vec3{10, 0, 0}, func(p *Proxy) {
			hits = append(hits, p.ID)
		})
		if len(hits) != 2 || hits[0] != 0 || hits[1] != 1 {
			t.Errorf("hits = %v, want [0 1]", hits)
		}
	})

	t.Run("aabb", func(t *testing.T) {
		var hits []int
		bf.AABBTest(box(0, 3, 0, 2.5), func(p *Proxy) {
			hits = append(hits, p.ID)
		})
		if len(hits) != 2 || hits[0] != 0 || hits[1] != 2 {
			t.Errorf("hits = %v, want [0 2]", hits)
		}
	})
}

func TestNew(t *testing.T) {
	if New(TypeBruteForce, 0, 0).Type() != TypeBruteForce {
		t.Error("expected brute force backend")
	}
	if New(TypeSpatialHash, 2, 32).Type() != TypeSpatialHash {
		t.Error("expected spatial hash backend")
	}
}
