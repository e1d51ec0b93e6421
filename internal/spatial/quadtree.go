// Package spatial implements the mutable quadtree spec.md §4.10 names as the
// server's spatial index. Grounded line-for-line on
// _examples/original_source/src/Game/Spatial/QuadTree.cpp/.h: a side
// position table keyed by player id (so Remove never needs the caller to
// remember a position), half-open Contains on bounds, and closest-point
// circle intersection for query pruning.
package spatial

import "math"

const (
	MaxPlayersPerNode = 4
	MaxDepth          = 6
)

type PlayerID uint64

type Vec2 struct {
	X, Y float32
}

// Bounds is an axis-aligned rectangle, half-open on both axes: a point at
// the far edge belongs to the next cell over, never this one.
type Bounds struct {
	X, Y, Width, Height float32
}

func (b Bounds) Contains(p Vec2) bool {
	return p.X >= b.X && p.X < b.X+b.Width && p.Y >= b.Y && p.Y < b.Y+b.Height
}

// Intersects reports whether the circle (center, radius) overlaps this
// rectangle, via the closest-point-on-rect-to-center distance test.
func (b Bounds) Intersects(center Vec2, radius float32) bool {
	closestX := clamp(center.X, b.X, b.X+b.Width)
	closestY := clamp(center.Y, b.Y, b.Y+b.Height)
	dx := center.X - closestX
	dy := center.Y - closestY
	return float64(dx)*float64(dx)+float64(dy)*float64(dy) <= float64(radius)*float64(radius)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type node struct {
	bounds     Bounds
	playerIDs  []PlayerID
	nw, ne, sw, se *node
}

func newNode(b Bounds) *node {
	return &node{bounds: b}
}

func (n *node) isLeaf() bool {
	return n.nw == nil
}

// QuadTree is the root of the tree plus the side table of current player
// positions that makes Remove/Update possible without the caller tracking
// positions itself.
type QuadTree struct {
	root      *node
	positions map[PlayerID]Vec2
}

// New constructs a QuadTree covering the given rectangle. width and height
// must be positive.
func New(x, y, width, height float32) *QuadTree {
	if width <= 0 || height <= 0 {
		panic("spatial: QuadTree bounds must have positive width and height")
	}
	return &QuadTree{
		root:      newNode(Bounds{X: x, Y: y, Width: width, Height: height}),
		positions: make(map[PlayerID]Vec2),
	}
}

// Insert stores pos in the side table and descends to place the player id.
func (q *QuadTree) Insert(id PlayerID, pos Vec2) {
	q.positions[id] = pos
	insertIntoNode(q.root, id, pos, q.positions, 0)
}

// Remove looks up the stored position and erases the id from its leaf.
func (q *QuadTree) Remove(id PlayerID) {
	pos, ok := q.positions[id]
	if !ok {
		return
	}
	delete(q.positions, id)
	removeFromNode(q.root, id, pos)
}

// Update is remove-then-insert, the simplest correct implementation and
// acceptable since per-tick updates are O(log N) per player (spec.md §4.10).
func (q *QuadTree) Update(id PlayerID, newPos Vec2) {
	q.Remove(id)
	q.Insert(id, newPos)
}

// Query returns every player id whose stored position is within radius of
// center, exactly (no false positives/negatives).
func (q *QuadTree) Query(center Vec2, radius float32) []PlayerID {
	var result []PlayerID
	queryNode(q.root, center, radius, q.positions, &result)
	return result
}

func (q *QuadTree) TotalPlayers() int {
	return len(q.positions)
}

func (q *QuadTree) TotalNodes() int {
	return countNodes(q.root)
}

// Clear empties the tree back to a single leaf root.
func (q *QuadTree) Clear() {
	q.positions = make(map[PlayerID]Vec2)
	q.root.playerIDs = nil
	q.root.nw, q.root.ne, q.root.sw, q.root.se = nil, nil, nil, nil
}

func insertIntoNode(n *node, id PlayerID, pos Vec2, positions map[PlayerID]Vec2, depth int) {
	if n.isLeaf() {
		n.playerIDs = append(n.playerIDs, id)
		if len(n.playerIDs) > MaxPlayersPerNode && depth < MaxDepth {
			subdivide(n)
			toReinsert := n.playerIDs
			n.playerIDs = nil
			for _, pid := range toReinsert {
				var p Vec2
				if pid == id {
					p = pos
				} else {
					p = positions[pid]
				}
				insertChild(n, pid, p, positions, depth)
			}
		}
		return
	}
	insertChild(n, id, pos, positions, depth)
}

func insertChild(n *node, id PlayerID, pos Vec2, positions map[PlayerID]Vec2, depth int) {
	switch {
	case n.nw.bounds.Contains(pos):
		insertIntoNode(n.nw, id, pos, positions, depth+1)
	case n.ne.bounds.Contains(pos):
		insertIntoNode(n.ne, id, pos, positions, depth+1)
	case n.sw.bounds.Contains(pos):
		insertIntoNode(n.sw, id, pos, positions, depth+1)
	case n.se.bounds.Contains(pos):
		insertIntoNode(n.se, id, pos, positions, depth+1)
	}
}

func removeFromNode(n *node, id PlayerID, pos Vec2) bool {
	if !n.bounds.Contains(pos) {
		return false
	}
	if n.isLeaf() {
		for i, pid := range n.playerIDs {
			if pid == id {
				n.playerIDs = append(n.playerIDs[:i], n.playerIDs[i+1:]...)
				return true
			}
		}
		return false
	}
	return removeFromNode(n.nw, id, pos) ||
		removeFromNode(n.ne, id, pos) ||
		removeFromNode(n.sw, id, pos) ||
		removeFromNode(n.se, id, pos)
}

func queryNode(n *node, center Vec2, radius float32, positions map[PlayerID]Vec2, result *[]PlayerID) {
	if !n.bounds.Intersects(center, radius) {
		return
	}
	if n.isLeaf() {
		radiusSq := float64(radius) * float64(radius)
		for _, id := range n.playerIDs {
			pos, ok := positions[id]
			if !ok {
				continue // removed since this node was last touched
			}
			dx := float64(pos.X - center.X)
			dy := float64(pos.Y - center.Y)
			if dx*dx+dy*dy <= radiusSq {
				*result = append(*result, id)
			}
		}
		return
	}
	queryNode(n.nw, center, radius, positions, result)
	queryNode(n.ne, center, radius, positions, result)
	queryNode(n.sw, center, radius, positions, result)
	queryNode(n.se, center, radius, positions, result)
}

func subdivide(n *node) {
	halfW := n.bounds.Width / 2
	halfH := n.bounds.Height / 2
	n.nw = newNode(Bounds{n.bounds.X, n.bounds.Y, halfW, halfH})
	n.ne = newNode(Bounds{n.bounds.X + halfW, n.bounds.Y, halfW, halfH})
	n.sw = newNode(Bounds{n.bounds.X, n.bounds.Y + halfH, halfW, halfH})
	n.se = newNode(Bounds{n.bounds.X + halfW, n.bounds.Y + halfH, halfW, halfH})
}

func countNodes(n *node) int {
	if n == nil {
		return 0
	}
	count := 1
	if !n.isLeaf() {
		count += countNodes(n.nw) + countNodes(n.ne) + countNodes(n.sw) + countNodes(n.se)
	}
	return count
}

// Distance is a small helper shared with the AOI cache for the movement
// threshold test.
func Distance(a, b Vec2) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Hypot(dx, dy)
}
