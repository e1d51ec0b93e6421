package spatial

import "testing"

func TestInsertRemoveLeavesCountUnchanged(t *testing.T) {
	q := New(0, 0, 100, 100)
	q.Insert(1, Vec2{10, 10})
	if q.TotalPlayers() != 1 {
		t.Fatalf("expected 1 player, got %d", q.TotalPlayers())
	}
	q.Remove(1)
	if q.TotalPlayers() != 0 {
		t.Fatalf("expected 0 players after remove, got %d", q.TotalPlayers())
	}
}

func TestUpdateMatchesRemoveThenInsert(t *testing.T) {
	a := New(0, 0, 100, 100)
	a.Insert(1, Vec2{5, 5})
	a.Update(1, Vec2{50, 50})

	b := New(0, 0, 100, 100)
	b.Insert(1, Vec2{5, 5})
	b.Remove(1)
	b.Insert(1, Vec2{50, 50})

	gotA := a.Query(Vec2{50, 50}, 1)
	gotB := b.Query(Vec2{50, 50}, 1)
	if len(gotA) != 1 || len(gotB) != 1 {
		t.Fatalf("expected both trees to find the moved player, got %v and %v", gotA, gotB)
	}
}

func TestQueryExactRadius(t *testing.T) {
	q := New(0, 0, 100, 100)
	q.Insert(1, Vec2{10, 10})
	q.Insert(2, Vec2{50, 50})
	q.Insert(3, Vec2{10, 10})

	got := q.Query(Vec2{10, 10}, 1)
	if len(got) != 2 {
		t.Fatalf("expected 2 players within radius, got %d: %v", len(got), got)
	}
	for _, id := range got {
		if id == 2 {
			t.Fatalf("player 2 should not be within radius 1 of (10,10)")
		}
	}
}

func TestSubdivideOnFifthInsertBelowMaxDepth(t *testing.T) {
	q := New(0, 0, 100, 100)
	for i := PlayerID(1); i <= 4; i++ {
		q.Insert(i, Vec2{float32(i), float32(i)})
	}
	if q.TotalNodes() != 1 {
		t.Fatalf("expected root to stay a single leaf at 4 players, got %d nodes", q.TotalNodes())
	}
	q.Insert(5, Vec2{6, 6})
	if q.TotalNodes() == 1 {
		t.Fatalf("expected a 5th insert to subdivide the root")
	}
}

func TestNoSubdivisionAtMaxDepth(t *testing.T) {
	// A 1x1 region forces every insert into the same leaf once max depth is
	// reached, since all fifty points are indistinguishable by quadrant.
	q := New(0, 0, 1, 1)
	for i := PlayerID(1); i <= 50; i++ {
		q.Insert(i, Vec2{0.5, 0.5})
	}
	if q.TotalPlayers() != 50 {
		t.Fatalf("expected all 50 players retained, got %d", q.TotalPlayers())
	}
	// One subdivision at each depth 0..MaxDepth-1 along the shared point's
	// path, none at MaxDepth: the root plus four children per subdivision.
	if got, want := q.TotalNodes(), 1+4*MaxDepth; got != want {
		t.Fatalf("expected %d nodes (no subdivision at max depth), got %d", want, got)
	}
}

func TestBoundsContainsHalfOpen(t *testing.T) {
	b := Bounds{X: 0, Y: 0, Width: 10, Height: 10}
	if !b.Contains(Vec2{0, 0}) {
		t.Fatalf("expected origin to be contained")
	}
	if b.Contains(Vec2{10, 5}) {
		t.Fatalf("expected far edge to NOT be contained (half-open)")
	}
	if b.Contains(Vec2{5, 10}) {
		t.Fatalf("expected far edge to NOT be contained (half-open)")
	}
}

func TestBoundsIntersectsCircle(t *testing.T) {
	b := Bounds{X: 0, Y: 0, Width: 10, Height: 10}
	if !b.Intersects(Vec2{15, 5}, 6) {
		t.Fatalf("expected circle overlapping the right edge to intersect")
	}
	if b.Intersects(Vec2{20, 5}, 6) {
		t.Fatalf("expected far circle to not intersect")
	}
}

func TestRemoveAbsentPlayerIsNoop(t *testing.T) {
	q := New(0, 0, 100, 100)
	q.Remove(999)
	if q.TotalPlayers() != 0 {
		t.Fatalf("expected no players")
	}
}
