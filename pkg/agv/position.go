package agv

// PositionIndex gives O(1) node-id -> pixel-coordinate lookups, built once
// per MapData and shared read-only across a tick. pkg/arbiter uses it to
// measure distance from a vehicle to a named node without re-scanning
// MapData.Nodes on every rule evaluation.
type PositionIndex struct {
	byID map[string]Node
}

// NewPositionIndex builds a PositionIndex from a MapData snapshot.
func NewPositionIndex(m MapData) PositionIndex {
	idx := PositionIndex{byID: make(map[string]Node, len(m.Nodes))}
	for _, n := range m.Nodes {
		idx.byID[n.ID] = n
	}
	return idx
}

// Pos returns the (x, y) pixel coordinates of a node id, and whether it
// was found.
func (p PositionIndex) Pos(id string) (x, y float64, ok bool) {
	n, ok := p.byID[id]
	if !ok {
		return 0, 0, false
	}
	return float64(n.X), float64(n.Y), true
}
