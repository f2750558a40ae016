package broadphase

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	DEFAULT_HASH_CELL_SIZE  = 4.0
	DEFAULT_HASH_TABLE_SIZE = 64
	// Initial bucket capacity; buckets grow past it.
	hashCellCapacity = 8
	// Cell coordinates beyond this do not fit the int conversion.
	maxCellCoord = 1 << 30
)

// ============================================================================
// Types
// ============================================================================

// CellKey - Coordonnées d'une cellule dans l'espace 3D
type CellKey struct {
	X, Y, Z int
}

// Cell - Conteneur d'identifiants de proxies dans une cellule
type Cell struct {
	proxyIDs []int
}

// SpatialHash - Grille spatiale uniforme avec hashing pour broad phase
//
// Buckets grow as needed, so collected pairs always match BruteForce.
// Proxies spanning more cells than the table holds are kept aside and
// tested against every other proxy.
type SpatialHash struct {
	proxyArena

	cellSize float64
	cells    []Cell
	cellMask int

	// rank is each proxy's position in the proxy list for this collect.
	rank  [MAX_PROXIES]int
	large []int
	seen  [MAX_PROXIES]int
	stamp int
}

// ============================================================================
// Constructeur
// ============================================================================

// NewSpatialHash - Crée une nouvelle grille hashée
func NewSpatialHash(cellSize float64, numCells int) *SpatialHash {
	if cellSize <= 0 {
		cellSize = DEFAULT_HASH_CELL_SIZE
	}
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].proxyIDs = make([]int, 0, hashCellCapacity)
	}

	return &SpatialHash{
		proxyArena: newProxyArena(),
		cellSize:   cellSize,
		cells:      cells,
		cellMask:   numCells - 1,
		large:      make([]int, 0, 8),
	}
}

// nextPowerOfTwo - Arrondit à la puissance de 2 supérieure
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

func (sh *SpatialHash) Type() Type { return TypeSpatialHash }

func (sh *SpatialHash) Incremental() bool { return false }

func (sh *SpatialHash) CellSize() float64 { return sh.cellSize }

// ============================================================================
// Collecte des paires
// ============================================================================

func (sh *SpatialHash) clear() {
	for i := range sh.cells {
		sh.cells[i].proxyIDs = sh.cells[i].proxyIDs[:0]
	}
	sh.large = sh.large[:0]
}

// cellRange returns the cell bounds of a proxy and whether it fits in the table.
// Non-finite or huge bounds never fit.
func (sh *SpatialHash) cellRange(p *Proxy) (CellKey, CellKey, bool) {
	if !sh.inGrid(p.AABB.Min) || !sh.inGrid(p.AABB.Max) {
		return CellKey{}, CellKey{}, false
	}
	minCell := sh.worldToCell(p.AABB.Min)
	maxCell := sh.worldToCell(p.AABB.Max)
	span := 1
	for _, n := range [3]int{maxCell.X - minCell.X + 1, maxCell.Y - minCell.Y + 1, maxCell.Z - minCell.Z + 1} {
		if n <= 0 || n > len(sh.cells) {
			return minCell, maxCell, false
		}
		span *= n
	}
	return minCell, maxCell, span <= len(sh.cells)
}

// insert - Insère un proxy dans toutes les cellules qu'il occupe
func (sh *SpatialHash) insert(p *Proxy) {
	minCell, maxCell, ok := sh.cellRange(p)
	if !ok {
		sh.large = append(sh.large, p.ID)
		return
	}

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				cellIdx := sh.hashCell(CellKey{x, y, z})
				sh.cells[cellIdx].proxyIDs = append(sh.cells[cellIdx].proxyIDs, p.ID)
			}
		}
	}
}

// CollectPairs reports each overlapping pair once, ordered by proxy-list position.
func (sh *SpatialHash) CollectPairs() {
	sh.resetPairs()
	sh.clear()

	order := 0
	sh.each(func(p *Proxy) {
		sh.rank[p.ID] = order
		order++
		sh.insert(p)
	})

	sh.each(func(p1 *Proxy) {
		sh.stamp++

		// Proxies trop grands : testés contre tout le monde
		if _, _, ok := sh.cellRange(p1); !ok {
			sh.each(func(p2 *Proxy) {
				sh.test(p1, p2)
			})
			return
		}
		for _, id := range sh.large {
			sh.test(p1, &sh.proxies[id])
		}

		minCell, maxCell, _ := sh.cellRange(p1)
		for x := minCell.X; x <= maxCell.X; x++ {
			for y := minCell.Y; y <= maxCell.Y; y++ {
				for z := minCell.Z; z <= maxCell.Z; z++ {
					cellIdx := sh.hashCell(CellKey{x, y, z})
					for _, id := range sh.cells[cellIdx].proxyIDs {
						sh.test(p1, &sh.proxies[id])
					}
				}
			}
		}
	})
}

// test checks one candidate, skipping pairs already handled for p1 and
// pairs that belong to the other proxy's turn.
func (sh *SpatialHash) test(p1, p2 *Proxy) {
	// ========== ORDRE DÉTERMINISTE ==========
	if sh.rank[p2.ID] <= sh.rank[p1.ID] || sh.seen[p2.ID] == sh.stamp {
		return
	}
	sh.seen[p2.ID] = sh.stamp

	sh.testCount++
	if p1.AABB.Overlaps(p2.AABB) {
		sh.addPair(p1, p2)
	}
}

// worldToCell - Convertit une position monde en coordonnées de cellule
func (sh *SpatialHash) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sh.cellSize)),
		Y: int(math.Floor(pos.Y() / sh.cellSize)),
		Z: int(math.Floor(pos.Z() / sh.cellSize)),
	}
}

// inGrid - Vrai si la position a des coordonnées de cellule représentables
func (sh *SpatialHash) inGrid(pos mgl64.Vec3) bool {
	for _, v := range pos {
		c := v / sh.cellSize
		if math.IsNaN(c) || math.Abs(c) >= maxCellCoord {
			return false
		}
	}
	return true
}

// hashCell - Hash une cellule vers un index dans l'array
func (sh *SpatialHash) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sh.cellMask
}
