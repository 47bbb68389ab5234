// Package mapgen implements a seeded map generator: rejection-sampled node
// placement over a canvas sized to the requested node count, followed by
// nearest-K edge connection with jittered weights.
//
// Shaped as a single Generate entry point over a seeded RNG, adapted from a
// grid/obstacle layout to a weighted graph of nodes and edges.
package mapgen

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/ardalan-sia/agv-fleet-sim/pkg/agv"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/prng"
)

const (
	minNodeSpacing = 80.0
	padding        = 50
	maxAttempts    = 2000
	baseCanvasArea = 800.0 * 600.0
	nodeAreaFactor = 80.0 * 80.0 * 2.5
	canvasAspectW  = 4.0
	canvasAspectH  = 3.0
)

// Generate produces a MapData deterministically from seed and nodeCount
// (clamped to [5, 200]). Calling Generate twice with the same arguments
// yields structurally identical maps.
func Generate(seed string, nodeCount int) agv.MapData {
	if nodeCount < 5 {
		nodeCount = 5
	}
	if nodeCount > 200 {
		nodeCount = 200
	}

	rng := prng.New(seed)
	width, height := canvasSize(nodeCount)

	nodes := placeNodes(rng, nodeCount, width, height)
	edges := connectEdges(rng, nodes)

	return agv.MapData{
		Nodes: nodes,
		Edges: edges,
		RunID: fingerprint(seed, nodeCount),
	}
}

// fingerprint stamps a stable-looking generation id for host-side
// correlation (logs, WebSocket snapshot headers). It is derived
// deterministically from a UUID v5 over the seed+count so repeated calls
// with the same arguments produce the same RunID, keeping Generate
// referentially transparent despite using the uuid package.
func fingerprint(seed string, nodeCount int) string {
	ns := uuid.NameSpaceOID
	name := fmt.Sprintf("%s:%d", seed, nodeCount)
	return uuid.NewSHA1(ns, []byte(name)).String()
}

func canvasSize(nodeCount int) (width, height float64) {
	area := math.Max(baseCanvasArea, float64(nodeCount)*nodeAreaFactor)
	// width:height = 4:3 -> width*height = area, width = height*4/3
	height = math.Sqrt(area / (canvasAspectW / canvasAspectH))
	width = height * canvasAspectW / canvasAspectH
	return width, height
}

func label(index int) string {
	letter := string(rune('A' + index%26))
	suffix := index / 26
	if suffix == 0 {
		return letter
	}
	return fmt.Sprintf("%s%d", letter, suffix)
}

func placeNodes(rng *prng.Source, nodeCount int, width, height float64) []agv.Node {
	var nodes []agv.Node
	attempts := 0
	for len(nodes) < nodeCount && attempts < maxAttempts {
		attempts++
		x := padding + rng.Float64()*(width-2*padding)
		y := padding + rng.Float64()*(height-2*padding)

		if tooClose(x, y, nodes) {
			continue
		}

		nodes = append(nodes, agv.Node{
			ID:    label(len(nodes)),
			X:     int(math.Round(x)),
			Y:     int(math.Round(y)),
			Label: label(len(nodes)),
		})
	}
	return nodes
}

func tooClose(x, y float64, nodes []agv.Node) bool {
	for _, n := range nodes {
		dx := x - float64(n.X)
		dy := y - float64(n.Y)
		if math.Hypot(dx, dy) < minNodeSpacing {
			return true
		}
	}
	return false
}

type candidate struct {
	node string
	dist float64
}

func connectEdges(rng *prng.Source, nodes []agv.Node) []agv.Edge {
	index := make(map[string]agv.Node, len(nodes))
	for _, n := range nodes {
		index[n.ID] = n
	}

	seen := make(map[[2]string]struct{})
	var edges []agv.Edge

	for _, n := range nodes {
		k := 2
		if rng.Float64() > 0.6 {
			k = 3
		}

		candidates := nearestOthers(n, nodes)
		connected := 0
		for _, c := range candidates {
			if connected >= k {
				break
			}
			key := edgeKey(n.ID, c.node)
			if _, exists := seen[key]; exists {
				connected++
				continue
			}
			seen[key] = struct{}{}
			weight := int(math.Round(c.dist * (0.8 + rng.Float64()*1.2)))
			if weight < 1 {
				weight = 1
			}
			edges = append(edges, agv.Edge{Source: n.ID, Target: c.node, Weight: weight})
			connected++
		}
	}
	return edges
}

func nearestOthers(n agv.Node, nodes []agv.Node) []candidate {
	var candidates []candidate
	for _, other := range nodes {
		if other.ID == n.ID {
			continue
		}
		dx := float64(n.X - other.X)
		dy := float64(n.Y - other.Y)
		candidates = append(candidates, candidate{node: other.ID, dist: math.Hypot(dx, dy)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	return candidates
}

func edgeKey(a, b string) [2]string {
	if a <= b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}
