// Package kdtree implements a static 3-dimensional kd-tree over point positions.
//
// Nodes live in a single slice and reference their children by index, so the whole
// tree is two flat allocations regardless of the number of points.
package kdtree

import (
	"errors"
	"math"

	"github.com/golang/geo/r3"
)

// ErrNoPoints is returned when building a tree over an empty set of positions.
var ErrNoPoints = errors.New("kdtree: no points to index")

const noChild = int32(-1)

// Neighbor is a match of a query: the sequence index of the point and its distance from the query center.
type Neighbor struct {
	Distance float64
	Index    int
}

type node struct {
	index int   // sequence index of the point stored in the node
	axis  uint8 // 0=X 1=Y 2=Z
	left  int32
	right int32
}

// Tree is an immutable kd-tree. It is safe for concurrent queries.
type Tree struct {
	positions []r3.Vector
	nodes     []node
	root      int32
}

// Build indexes the given positions. The sequence index of each position is the payload returned by queries.
// Construction selects the median on a cycling axis, O(n log n) expected.
func Build(positions []r3.Vector) (*Tree, error) {
	if len(positions) == 0 {
		return nil, ErrNoPoints
	}

	tree := &Tree{
		positions: positions,
		nodes:     make([]node, 0, len(positions)),
	}

	order := make([]int, len(positions))
	for i := range order {
		order[i] = i
	}
	tree.root = tree.build(order, 0)

	return tree, nil
}

// Len returns the number of indexed points
func (t *Tree) Len() int {
	return len(t.nodes)
}

func (t *Tree) build(order []int, depth int) int32 {
	if len(order) == 0 {
		return noChild
	}

	axis := uint8(depth % 3)
	mid := len(order) / 2
	t.selectNth(order, mid, axis)

	id := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{index: order[mid], axis: axis})

	left := t.build(order[:mid], depth+1)
	right := t.build(order[mid+1:], depth+1)
	t.nodes[id].left = left
	t.nodes[id].right = right

	return id
}

// rearranges order so that order[k] holds the k-th smallest coordinate on axis,
// with no greater element before it and no smaller element after it
func (t *Tree) selectNth(order []int, k int, axis uint8) {
	lo, hi := 0, len(order)-1
	for lo < hi {
		pivot := t.coord(order[lo+(hi-lo)/2], axis)
		i, j := lo, hi
		for i <= j {
			for t.coord(order[i], axis) < pivot {
				i++
			}
			for t.coord(order[j], axis) > pivot {
				j--
			}
			if i <= j {
				order[i], order[j] = order[j], order[i]
				i++
				j--
			}
		}
		switch {
		case k <= j:
			hi = j
		case k >= i:
			lo = i
		default:
			return
		}
	}
}

func (t *Tree) coord(index int, axis uint8) float64 {
	return component(t.positions[index], axis)
}

func component(v r3.Vector, axis uint8) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// RangeQuery returns every indexed point whose euclidean distance from center is at most radius, in no particular order.
// A radius of 0 matches only points coincident with center. A negative or NaN radius matches nothing.
func (t *Tree) RangeQuery(center r3.Vector, radius float64) []Neighbor {
	if !(radius >= 0) {
		return nil
	}
	radiusSq := radius * radius

	var result []Neighbor
	stack := make([]int32, 0, 64)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == noChild {
			continue
		}
		n := t.nodes[id]

		position := t.positions[n.index]
		if distSq := position.Sub(center).Norm2(); distSq <= radiusSq {
			result = append(result, Neighbor{Distance: math.Sqrt(distSq), Index: n.index})
		}

		c := component(center, n.axis)
		split := component(position, n.axis)
		if c-radius <= split {
			stack = append(stack, n.left)
		}
		if c+radius >= split {
			stack = append(stack, n.right)
		}
	}

	return result
}

// Nearest returns the indexed point closest to center
func (t *Tree) Nearest(center r3.Vector) Neighbor {
	best := Neighbor{Index: -1, Distance: math.Inf(1)}
	bestSq := math.Inf(1)
	t.nearest(t.root, center, &best, &bestSq)
	best.Distance = math.Sqrt(bestSq)
	return best
}

func (t *Tree) nearest(id int32, center r3.Vector, best *Neighbor, bestSq *float64) {
	if id == noChild {
		return
	}
	n := t.nodes[id]
	position := t.positions[n.index]

	if distSq := position.Sub(center).Norm2(); distSq < *bestSq {
		*bestSq = distSq
		best.Index = n.index
	}

	diff := component(center, n.axis) - component(position, n.axis)
	near, far := n.left, n.right
	if diff > 0 {
		near, far = n.right, n.left
	}
	t.nearest(near, center, best, bestSq)
	if diff*diff <= *bestSq {
		t.nearest(far, center, best, bestSq)
	}
}
