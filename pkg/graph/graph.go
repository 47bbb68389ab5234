// Package graph is an adjacency model and a pair of pathfinders: a weighted
// undirected graph addressed by string node id, a constrained Dijkstra, and
// a bounded DFS enumerator of K simple paths.
//
// The underlying shortest-path search generalizes a directed,
// caller-weight-function style Dijkstra into an undirected, integer-weighted
// graph with avoid-node/avoid-edge constraints, keeping the same binary-heap
// shape.
package graph

import "container/heap"

// Neighbor is one entry of a node's adjacency list.
type Neighbor struct {
	Node   string
	Weight int
}

// Graph is an adjacency-map representation. Keys are unique node ids; each
// value is the ordered sequence of neighbors discovered while building the
// graph (insertion order is preserved, which fixes the order in which
// FindPath discovers equal-cost predecessors).
type Graph struct {
	adj map[string][]Neighbor
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{adj: make(map[string][]Neighbor)}
}

// AddNode ensures a node id exists in the graph even if it ends up with no
// edges (the map generator's rejection sampling can produce isolated nodes,
// and a graph need not be connected).
func (g *Graph) AddNode(id string) {
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = nil
	}
}

// AddEdge inserts both directions of an undirected edge. Each unordered
// pair should be added at most once by the caller (the map generator
// de-duplicates); AddEdge itself does not deduplicate.
func (g *Graph) AddEdge(a, b string, weight int) {
	g.AddNode(a)
	g.AddNode(b)
	g.adj[a] = append(g.adj[a], Neighbor{Node: b, Weight: weight})
	g.adj[b] = append(g.adj[b], Neighbor{Node: a, Weight: weight})
}

// Neighbors returns the adjacency list of a node, nil if the node is
// absent or isolated.
func (g *Graph) Neighbors(node string) []Neighbor { return g.adj[node] }

// HasNode reports whether a node id exists in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.adj[id]
	return ok
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.adj) }

// edgeKey canonicalizes an undirected edge for set membership, regardless
// of which endpoint is named first.
func edgeKey(a, b string) [2]string {
	if a <= b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

// AvoidSet is a constraint pair for FindPath/FindAllPaths: nodes treated as
// absent, and undirected edges skipped in both directions.
type AvoidSet struct {
	Nodes map[string]struct{}
	Edges map[[2]string]struct{}
}

// NewAvoidSet returns an empty constraint set ready for use.
func NewAvoidSet() AvoidSet {
	return AvoidSet{Nodes: make(map[string]struct{}), Edges: make(map[[2]string]struct{})}
}

// AvoidNode adds a node to the constraint set.
func (a AvoidSet) AvoidNode(id string) { a.Nodes[id] = struct{}{} }

// AvoidEdge adds an undirected edge to the constraint set.
func (a AvoidSet) AvoidEdge(x, y string) { a.Edges[edgeKey(x, y)] = struct{}{} }

func (a AvoidSet) nodeBlocked(id string) bool {
	if a.Nodes == nil {
		return false
	}
	_, ok := a.Nodes[id]
	return ok
}

func (a AvoidSet) edgeBlocked(x, y string) bool {
	if a.Edges == nil {
		return false
	}
	_, ok := a.Edges[edgeKey(x, y)]
	return ok
}

// heapItem is one entry of the Dijkstra priority queue.
type heapItem struct {
	node string
	dist int
}

type itemHeap []heapItem

func (h itemHeap) Len() int            { return len(h) }
func (h itemHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h itemHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x interface{}) { *h = append(*h, x.(heapItem)) }
func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// FindPath runs a constrained Dijkstra from start to goal, treating any
// node in avoid.Nodes as not present and skipping any edge in avoid.Edges
// in both directions. Returns the path excluding the start node — i.e. the
// sequence of steps to take — or an empty slice if goal is unreachable.
//
// Ties are broken by first-discovered predecessor, which leaves equal-cost
// alternatives unresolved deterministically rather than arbitrarily.
func (g *Graph) FindPath(start, goal string, avoid AvoidSet) []string {
	if start == goal {
		return nil
	}
	if !g.HasNode(start) || !g.HasNode(goal) {
		return nil
	}
	if avoid.nodeBlocked(start) || avoid.nodeBlocked(goal) {
		return nil
	}

	const inf = 1 << 62
	dist := make(map[string]int)
	prev := make(map[string]string)
	visited := make(map[string]bool)
	dist[start] = 0

	pq := &itemHeap{{node: start, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(heapItem)
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true
		if cur.node == goal {
			break
		}
		for _, nb := range g.Neighbors(cur.node) {
			if avoid.nodeBlocked(nb.Node) || avoid.edgeBlocked(cur.node, nb.Node) {
				continue
			}
			d, ok := dist[cur.node]
			if !ok {
				d = inf
			}
			alt := d + nb.Weight
			cd, ok := dist[nb.Node]
			if !ok || alt < cd {
				dist[nb.Node] = alt
				prev[nb.Node] = cur.node
				heap.Push(pq, heapItem{node: nb.Node, dist: alt})
			}
		}
	}

	if _, ok := dist[goal]; !ok {
		return nil
	}

	var path []string
	for n := goal; n != start; n = prev[n] {
		path = append([]string{n}, path...)
	}
	return path
}

// PathCost returns the total weight of a sequence of steps from start,
// following the given path (as returned by FindPath/FindAllPaths). Returns
// -1 if any hop is not a real edge.
func (g *Graph) PathCost(start string, path []string) int {
	total := 0
	cur := start
	for _, next := range path {
		w, ok := g.edgeWeight(cur, next)
		if !ok {
			return -1
		}
		total += w
		cur = next
	}
	return total
}

func (g *Graph) edgeWeight(a, b string) (int, bool) {
	for _, nb := range g.adj[a] {
		if nb.Node == b {
			return nb.Weight, true
		}
	}
	return 0, false
}

// ConnectedComponent returns the set of node ids reachable from start via
// BFS, ignoring weights. Used by pkg/fleet to short-circuit setTarget with
// NoPath before running a full Dijkstra against an unreachable goal.
func (g *Graph) ConnectedComponent(start string) map[string]struct{} {
	seen := map[string]struct{}{start: {}}
	if !g.HasNode(start) {
		return seen
	}
	queue := []string{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, nb := range g.Neighbors(n) {
			if _, ok := seen[nb.Node]; !ok {
				seen[nb.Node] = struct{}{}
				queue = append(queue, nb.Node)
			}
		}
	}
	return seen
}
