package model

import "github.com/taigrr/softbsp/pkg/math3d"

// PointZone returns the zone containing p, or 0 when p is in solid space or
// the model is empty.
func (m *Model) PointZone(p math3d.Vec3) int {
	if len(m.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		n := &m.Nodes[i]
		side, child := 1, n.Front
		if n.Plane.Dot(p) < 0 {
			side, child = 0, n.Back
		}
		if child == IndexNone {
			return n.Zone[side]
		}
		i = child
	}
}

// LineCheck reports whether the segment from a to b stays out of solid
// space.
func (m *Model) LineCheck(a, b math3d.Vec3) bool {
	if len(m.Nodes) == 0 {
		return true
	}
	return m.lineCheck(0, a, b)
}

func (m *Model) lineCheck(i int, a, b math3d.Vec3) bool {
	n := &m.Nodes[i]
	da, db := n.Plane.Dot(a), n.Plane.Dot(b)

	switch {
	case da >= -math3d.PlaneEpsilon && db >= -math3d.PlaneEpsilon:
		return m.childClear(n, 1, a, b)
	case da < math3d.PlaneEpsilon && db < math3d.PlaneEpsilon:
		return m.childClear(n, 0, a, b)
	}

	mid := a.Lerp(b, da/(da-db))
	near, far := 1, 0
	if da < 0 {
		near, far = 0, 1
	}
	return m.childClear(n, near, a, mid) && m.childClear(n, far, mid, b)
}

func (m *Model) childClear(n *Node, side int, a, b math3d.Vec3) bool {
	child := n.Back
	if side == 1 {
		child = n.Front
	}
	if child == IndexNone {
		return n.Zone[side] != 0
	}
	return m.lineCheck(child, a, b)
}

// SphereNodes calls visit for every node, coplanars included, whose polygon
// plane passes within radius of center.
func (m *Model) SphereNodes(center math3d.Vec3, radius float64, visit func(node int)) {
	if len(m.Nodes) == 0 {
		return
	}
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &m.Nodes[i]
		if b, ok := m.NodeBound(i); ok && !b.IntersectsSphere(center, radius) {
			continue
		}

		d := n.Plane.Dot(center)
		if d > -radius && d < radius {
			for c := i; c != IndexNone; c = m.Nodes[c].Coplanar {
				visit(c)
			}
		}
		if d > -radius && n.Front != IndexNone {
			stack = append(stack, n.Front)
		}
		if d < radius && n.Back != IndexNone {
			stack = append(stack, n.Back)
		}
	}
}
