package actor

import "github.com/go-gl/mathgl/mgl64"

// bvhNode is either an inner node (count == 0) or a leaf over
// indices[start : start+count].
type bvhNode struct {
	bounds AABB
	left   int
	right  int
	start  int
	count  int
}

func (n *bvhNode) isLeaf() bool {
	return n.count > 0
}

// BVH indexes a fixed triangle set. It is built once and never modified.
type BVH struct {
	nodes   []bvhNode
	indices []int
	// Per-triangle bounds, checked before a leaf entry is reported.
	itemBounds []AABB
}

// buildBVH builds the hierarchy over the given triangle bounds and centroids.
func buildBVH(bounds []AABB, centroids []mgl64.Vec3) BVH {
	bvh := BVH{
		indices:    make([]int, len(bounds)),
		nodes:      make([]bvhNode, 0, 2*len(bounds)),
		itemBounds: bounds,
	}
	for i := range bvh.indices {
		bvh.indices[i] = i
	}
	if len(bounds) > 0 {
		bvh.build(bounds, centroids, 0, len(bounds), 0)
	}
	return bvh
}

func (b *BVH) build(bounds []AABB, centroids []mgl64.Vec3, start, end, depth int) int {
	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, bvhNode{left: -1, right: -1})

	box := bounds[b.indices[start]]
	for i := start + 1; i < end; i++ {
		box = box.Combine(bounds[b.indices[i]])
	}
	b.nodes[nodeIndex].bounds = box

	count := end - start
	// At max depth the remaining triangles all go into one leaf.
	if count <= BvhLeafSize || depth >= BvhMaxDepth {
		b.nodes[nodeIndex].start = start
		b.nodes[nodeIndex].count = count
		return nodeIndex
	}

	axis := box.LongestAxis()
	mid := box.Center()[axis]

	// Partition around the midpoint of the node bounds.
	split := start
	for i := start; i < end; i++ {
		if centroids[b.indices[i]][axis] < mid {
			b.indices[i], b.indices[split] = b.indices[split], b.indices[i]
			split++
		}
	}
	if split == start || split == end {
		split = start + count/2
	}

	left := b.build(bounds, centroids, start, split, depth+1)
	right := b.build(bounds, centroids, split, end, depth+1)
	b.nodes[nodeIndex].left = left
	b.nodes[nodeIndex].right = right
	return nodeIndex
}

// Query appends to dst the index of every triangle whose bounds overlap aabb.
// At most limit indices are returned; the excess is silently dropped.
func (b *BVH) Query(aabb AABB, dst []int, limit int) []int {
	if len(b.nodes) == 0 {
		return dst
	}

	var stack [2*BvhMaxDepth + 2]int
	top := 0
	stack[top] = 0
	top++

	for top > 0 {
		top--
		node := &b.nodes[stack[top]]
		if !node.bounds.Overlaps(aabb) {
			continue
		}
		if node.isLeaf() {
			for _, idx := range b.indices[node.start : node.start+node.count] {
				if !b.itemBounds[idx].Overlaps(aabb) {
					continue
				}
				if len(dst) >= limit {
					return dst
				}
				dst = append(dst, idx)
			}
			continue
		}
		stack[top] = node.left
		top++
		stack[top] = node.right
		top++
	}
	return dst
}

// Depth returns the number of levels in the hierarchy.
func (b *BVH) Depth() int {
	if len(b.nodes) == 0 {
		return 0
	}
	var depth func(i int) int
	depth = func(i int) int {
		n := &b.nodes[i]
		if n.isLeaf() {
			return 1
		}
		return 1 + max(depth(n.left), depth(n.right))
	}
	return depth(0)
}

func (b *BVH) NumNodes() int {
	return len(b.nodes)
}
