package graph

import "sort"

// FindAllPaths enumerates up to limit simple (acyclic) paths from start to
// goal via DFS, visiting neighbors in ascending edge-weight order. Results
// are sorted by total cost ascending before return. The excluded-start
// convention matches FindPath.
//
// This is intentionally cruder than FindPath: complexity is exponential in
// the worst case, bounded only by limit. Callers should prefer FindPath for
// large graphs and reserve this for ranked-detour fallback over small
// neighborhoods.
func (g *Graph) FindAllPaths(start, goal string, avoid AvoidSet, limit int) [][]string {
	if limit <= 0 {
		limit = 10
	}
	if !g.HasNode(start) || !g.HasNode(goal) || avoid.nodeBlocked(start) || avoid.nodeBlocked(goal) {
		return nil
	}
	if start == goal {
		return nil
	}

	var results [][]string
	visited := map[string]bool{start: true}
	var cur []string

	var dfs func(node string)
	dfs = func(node string) {
		if len(results) >= limit {
			return
		}
		if node == goal {
			results = append(results, append([]string(nil), cur...))
			return
		}
		neighbors := append([]Neighbor(nil), g.Neighbors(node)...)
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].Weight < neighbors[j].Weight })
		for _, nb := range neighbors {
			if len(results) >= limit {
				return
			}
			if visited[nb.Node] || avoid.nodeBlocked(nb.Node) || avoid.edgeBlocked(node, nb.Node) {
				continue
			}
			visited[nb.Node] = true
			cur = append(cur, nb.Node)
			dfs(nb.Node)
			cur = cur[:len(cur)-1]
			visited[nb.Node] = false
		}
	}
	dfs(start)

	sort.SliceStable(results, func(i, j int) bool {
		return g.PathCost(start, results[i]) < g.PathCost(start, results[j])
	})
	return results
}
