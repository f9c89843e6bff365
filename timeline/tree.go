package timeline

// node is an AVL node keyed by (Start, Index) and augmented with the largest
// End found in its subtree.
type node struct {
	note        Note
	maxEnd      float64
	height      int
	left, right *node
}

func less(a, b Note) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.Index < b.Index
}

func height(n *node) int {
	if n == nil {
		return 0
	}
	return n.height
}

func (n *node) update() {
	n.height = 1 + max(height(n.left), height(n.right))
	n.maxEnd = n.note.End
	if n.left != nil && n.left.maxEnd > n.maxEnd {
		n.maxEnd = n.left.maxEnd
	}
	if n.right != nil && n.right.maxEnd > n.maxEnd {
		n.maxEnd = n.right.maxEnd
	}
}

func (n *node) balance() int {
	return height(n.left) - height(n.right)
}

func rotateRight(n *node) *node {
	l := n.left
	n.left = l.right
	l.right = n
	n.update()
	l.update()
	return l
}

func rotateLeft(n *node) *node {
	r := n.right
	n.right = r.left
	r.left = n
	n.update()
	r.update()
	return r
}

func insert(n *node, note Note) *node {
	if n == nil {
		nn := &node{note: note}
		nn.update()
		return nn
	}
	if less(note, n.note) {
		n.left = insert(n.left, note)
	} else {
		n.right = insert(n.right, note)
	}
	n.update()

	switch b := n.balance(); {
	case b > 1:
		if n.left.balance() < 0 {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	case b < -1:
		if n.right.balance() > 0 {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	}
	return n
}

// collect appends, in key order, the notes overlapping [lo, hi).
func collect(n *node, lo, hi float64, res *[]Note) {
	if n == nil || n.maxEnd <= lo {
		return
	}
	collect(n.left, lo, hi, res)
	if n.note.Start >= hi {
		// everything to the right starts even later
		return
	}
	if n.note.End > lo {
		*res = append(*res, n.note)
	}
	collect(n.right, lo, hi, res)
}

func collectPoint(n *node, t float64, res *[]Note) {
	if n == nil || n.maxEnd <= t {
		return
	}
	collectPoint(n.left, t, res)
	if n.note.Start > t {
		return
	}
	if n.note.End > t {
		*res = append(*res, n.note)
	}
	collectPoint(n.right, t, res)
}
