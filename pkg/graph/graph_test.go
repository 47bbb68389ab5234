package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardalan-sia/agv-fleet-sim/pkg/graph"
)

func line() *graph.Graph {
	g := graph.New()
	g.AddEdge("A", "B", 100)
	g.AddEdge("B", "C", 100)
	return g
}

func TestFindPathStraightLine(t *testing.T) {
	g := line()
	path := g.FindPath("A", "C", graph.NewAvoidSet())
	require.Equal(t, []string{"B", "C"}, path)
	assert.Equal(t, 200, g.PathCost("A", path))
}

func TestFindPathUnreachable(t *testing.T) {
	g := graph.New()
	g.AddEdge("A", "B", 10)
	g.AddNode("Z")
	assert.Empty(t, g.FindPath("A", "Z", graph.NewAvoidSet()))
}

func TestFindPathAvoidsBlockedEdge(t *testing.T) {
	g := graph.New()
	g.AddEdge("A", "B", 100)
	g.AddEdge("B", "C", 100)
	g.AddEdge("A", "D", 100)
	g.AddEdge("D", "C", 100)

	avoid := graph.NewAvoidSet()
	avoid.AvoidEdge("A", "B")
	path := g.FindPath("A", "C", avoid)
	require.Equal(t, []string{"D", "C"}, path)
}

func TestFindPathAvoidsBlockedNode(t *testing.T) {
	g := graph.New()
	g.AddEdge("A", "B", 100)
	g.AddEdge("B", "C", 100)
	g.AddEdge("A", "D", 100)
	g.AddEdge("D", "C", 100)

	avoid := graph.NewAvoidSet()
	avoid.AvoidNode("B")
	path := g.FindPath("A", "C", avoid)
	require.Equal(t, []string{"D", "C"}, path)
}

func TestFindPathOptimality(t *testing.T) {
	g := graph.New()
	g.AddEdge("A", "B", 1)
	g.AddEdge("B", "C", 1)
	g.AddEdge("A", "C", 10)
	path := g.FindPath("A", "C", graph.NewAvoidSet())
	assert.Equal(t, 2, g.PathCost("A", path))
}

func TestFindAllPathsRankedByCost(t *testing.T) {
	g := graph.New()
	g.AddEdge("A", "B", 1)
	g.AddEdge("B", "D", 1)
	g.AddEdge("A", "C", 5)
	g.AddEdge("C", "D", 5)

	paths := g.FindAllPaths("A", "D", graph.NewAvoidSet(), 10)
	require.Len(t, paths, 2)
	assert.Equal(t, []string{"B", "D"}, paths[0])
	assert.LessOrEqual(t, g.PathCost("A", paths[0]), g.PathCost("A", paths[1]))
}

func TestFindAllPathsRespectsLimit(t *testing.T) {
	g := graph.New()
	// K4-ish small dense graph with many simple paths
	nodes := []string{"A", "B", "C", "D", "E"}
	for i, a := range nodes {
		for _, b := range nodes[i+1:] {
			g.AddEdge(a, b, 1)
		}
	}
	paths := g.FindAllPaths("A", "E", graph.NewAvoidSet(), 3)
	assert.LessOrEqual(t, len(paths), 3)
}

func TestConnectedComponentDisconnected(t *testing.T) {
	g := graph.New()
	g.AddEdge("A", "B", 10)
	g.AddEdge("C", "D", 10)
	comp := g.ConnectedComponent("A")
	_, hasB := comp["B"]
	_, hasC := comp["C"]
	assert.True(t, hasB)
	assert.False(t, hasC)
}
