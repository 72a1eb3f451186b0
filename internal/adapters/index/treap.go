package index

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/eduquest/internal/domain/model"
	"github.com/okian/eduquest/pkg/metrics"
)

// key orders standings: points desc, then registration asc, then id asc.
// In-order traversal yields the leaderboard from best to worst.
type key struct {
	points    int
	createdAt int64
	id        string
}

func less(a, b key) bool {
	if a.points != b.points {
		return a.points > b.points
	}
	if a.createdAt != b.createdAt {
		return a.createdAt < b.createdAt
	}
	return a.id < b.id
}

func keyOf(u model.User) key {
	return key{points: u.Points, createdAt: u.CreatedAt.UnixNano(), id: u.ID}
}

type node struct {
	k     key
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, k key, prio uint64) *node {
	if n == nil {
		return &node{k: k, prio: prio, size: 1}
	}
	if less(k, n.k) {
		n.left = insert(n.left, k, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, k, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, k key) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.k == k:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, k)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, k)
		}
	case less(k, n.k):
		n.left = remove(n.left, k)
	default:
		n.right = remove(n.right, k)
	}
	fix(n)
	return n
}

// collect walks in rank order until visit returns false.
func collect(n *node, visit func(key) bool) bool {
	if n == nil {
		return true
	}
	if !collect(n.left, visit) {
		return false
	}
	if !visit(n.k) {
		return false
	}
	return collect(n.right, visit)
}

// Treap is an in-memory Index with O(log n) expected updates.
type Treap struct {
	mu   sync.RWMutex
	root *node
	byID map[string]key
	rng  *rand.Rand
}

// NewTreap returns an empty treap index.
func NewTreap() *Treap {
	return &Treap{
		byID: make(map[string]key),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // balancing only
	}
}

func (t *Treap) Upsert(_ context.Context, u model.User) error {
	k := keyOf(u)
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.byID[u.ID]; ok {
		if old == k {
			return nil
		}
		t.root = remove(t.root, old)
	}
	t.byID[u.ID] = k
	t.root = insert(t.root, k, t.rng.Uint64())
	return nil
}

func (t *Treap) Candidates(_ context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, limit)
	boundary := 0
	collect(t.root, func(k key) bool {
		if len(out) >= limit && k.points != boundary {
			return false
		}
		out = append(out, k.id)
		boundary = k.points
		return true
	})
	return out, nil
}

func (t *Treap) Rebuild(_ context.Context, users []model.User) error {
	start := time.Now()
	t.mu.Lock()
	t.root = nil
	t.byID = make(map[string]key, len(users))
	for _, u := range users {
		k := keyOf(u)
		t.byID[u.ID] = k
		t.root = insert(t.root, k, t.rng.Uint64())
	}
	size := len(t.byID)
	t.mu.Unlock()

	metrics.RecordIndexRebuild(float64(time.Since(start).Microseconds())/1000, size)
	return nil
}

func (t *Treap) Len(_ context.Context) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return nsize(t.root), nil
}

// Close is a no-op.
func (t *Treap) Close() error { return nil }
