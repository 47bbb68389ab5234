package recovery_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardalan-sia/agv-fleet-sim/pkg/agv"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/arbiter"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/graph"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/recovery"
)

// line graph A-B-C-D plus a bypass A-E-D, all weight 10, so there's always
// a detour around any single blocked edge or node.
func lineGraph() *graph.Graph {
	g := graph.New()
	g.AddEdge("A", "B", 10)
	g.AddEdge("B", "C", 10)
	g.AddEdge("C", "D", 10)
	g.AddEdge("A", "E", 10)
	g.AddEdge("E", "D", 10)
	return g
}

func edgeDist(g *graph.Graph) recovery.EdgeDistance {
	return func(from, to string) (float64, bool) {
		for _, nb := range g.Neighbors(from) {
			if nb.Node == to {
				return float64(nb.Weight), true
			}
		}
		return 0, false
	}
}

func newRecord(id int, node, target string, path []string) *agv.Record {
	return &agv.Record{
		ID:          id,
		CurrentNode: node,
		TargetNode:  target,
		Path:        path,
		Config:      agv.DefaultFleetConfig(),
	}
}

func TestApplyWaitIncrementsTimerBeforeRetry(t *testing.T) {
	g := lineGraph()
	rec := newRecord(1, "A", "D", []string{"B", "C", "D"})
	verdict := arbiter.Verdict{Action: arbiter.Wait, Reason: "Dest Occupied", Blocker: 2}
	blocker := agv.Record{ID: 2, Status: agv.Moving}

	recovery.ApplyWait(rec, verdict, blocker, g, edgeDist(g))

	assert.Equal(t, agv.Waiting, rec.Status)
	assert.Equal(t, 1, rec.WaitTimer)
	assert.Equal(t, 0, rec.RetryCount)
	assert.Equal(t, []string{"B", "C", "D"}, rec.Path)
}

func TestApplyWaitDetoursAfterRetryInterval(t *testing.T) {
	g := lineGraph()
	rec := newRecord(1, "A", "D", []string{"B", "C", "D"})
	rec.WaitTimer = recovery.RetryInterval
	verdict := arbiter.Verdict{Action: arbiter.Wait, Reason: "Dest Occupied", Blocker: 2}
	blocker := agv.Record{ID: 2, Status: agv.Moving}

	recovery.ApplyWait(rec, verdict, blocker, g, edgeDist(g))

	assert.Equal(t, 0, rec.WaitTimer)
	assert.Equal(t, 1, rec.RetryCount)
	require.NotEmpty(t, rec.Path)
	assert.NotEqual(t, "B", rec.Path[0], "detour must avoid the originally blocked node")
	assert.Equal(t, "D", rec.Path[len(rec.Path)-1])
}

func TestApplyWaitBumpsPathRankAfterMaxRetries(t *testing.T) {
	g := lineGraph()
	rec := newRecord(1, "A", "D", []string{"B", "C", "D"})
	rec.WaitTimer = recovery.RetryInterval
	rec.RetryCount = recovery.MaxRetriesPerRank - 1
	verdict := arbiter.Verdict{Action: arbiter.Wait, Reason: "Dest Occupied", Blocker: 2}
	blocker := agv.Record{ID: 2, Status: agv.Moving}

	recovery.ApplyWait(rec, verdict, blocker, g, edgeDist(g))

	assert.Equal(t, 1, rec.PathRank)
}

func TestApplyWaitStepsBackWhenBlockerAlsoStuck(t *testing.T) {
	g := lineGraph()
	rec := newRecord(1, "A", "D", []string{"B", "C", "D"})
	rec.PreviousNode = ""
	rec.RetryCount = 2
	rec.WaitTimer = recovery.RetryInterval
	verdict := arbiter.Verdict{Action: arbiter.Wait, Reason: "Head-on with AGV 2", Blocker: 2}
	blocker := agv.Record{ID: 2, Status: agv.Waiting}

	recovery.ApplyWait(rec, verdict, blocker, g, edgeDist(g))

	assert.Equal(t, 0, rec.RetryCount)
	assert.NotEqual(t, agv.Waiting, rec.Status, "a successful step-back should move the AGV into DETOUR, not leave it WAITING")
}

func TestApplyHeadOnRepathAtNodeReplansImmediately(t *testing.T) {
	g := lineGraph()
	rec := newRecord(1, "A", "D", []string{"B", "C", "D"})
	rec.Progress = 0
	verdict := arbiter.Verdict{Action: arbiter.RepathHeadOn, AvoidFrom: "A", AvoidTo: "B", Blocker: 2}

	recovery.ApplyHeadOnRepath(rec, verdict, g, edgeDist(g))

	assert.Equal(t, agv.Repathing, rec.Status)
	assert.Equal(t, 0, rec.PathRank)
	require.NotEmpty(t, rec.Path)
	assert.NotEqual(t, "B", rec.Path[0])
}

func TestApplyHeadOnRepathMidEdgeTurnsOnEdge(t *testing.T) {
	g := lineGraph()
	rec := newRecord(1, "A", "D", []string{"B", "C", "D"})
	rec.Progress = 0.4
	rec.ProgressDistance = 4
	rec.PathRank = 2
	verdict := arbiter.Verdict{Action: arbiter.RepathHeadOn, AvoidFrom: "A", AvoidTo: "B", Blocker: 2}

	recovery.ApplyHeadOnRepath(rec, verdict, g, edgeDist(g))

	assert.Equal(t, "B", rec.CurrentNode, "turn-on-edge makes the far end of the blocked edge the new current node")
	assert.Equal(t, "A", rec.PreviousNode)
	require.NotEmpty(t, rec.Path)
	assert.Equal(t, "A", rec.Path[0], "the vehicle must finish crossing the edge before detouring")
	assert.InDelta(t, 0.6, rec.Progress, 1e-9, "progress inverts so motion continues without teleporting")
	assert.Equal(t, 0, rec.PathRank, "head-on repath resets PathRank even in the mid-edge turn-on-edge case")
}

func TestStepBackMidEdgeReversesInPlace(t *testing.T) {
	g := lineGraph()
	rec := newRecord(1, "A", "D", []string{"B", "C", "D"})
	rec.Progress = 0.3
	rec.ProgressDistance = 3

	recovery.StepBack(rec, g, edgeDist(g))

	assert.Equal(t, "B", rec.CurrentNode)
	assert.Equal(t, "A", rec.PreviousNode)
	assert.InDelta(t, 0.7, rec.Progress, 1e-9)
}

func TestStepBackAtNodeRetreatsToPreviousNode(t *testing.T) {
	g := lineGraph()
	rec := newRecord(1, "B", "D", []string{"C", "D"})
	rec.PreviousNode = "A"
	rec.Progress = 0

	recovery.StepBack(rec, g, edgeDist(g))

	require.NotEmpty(t, rec.Path)
	assert.Equal(t, "A", rec.Path[0])
	assert.Equal(t, agv.Detour, rec.Status)
}

func TestStepBackAtNodeWithoutPreviousPicksAnyOtherNeighbor(t *testing.T) {
	g := lineGraph()
	rec := newRecord(1, "A", "D", []string{"B", "C", "D"})
	rec.PreviousNode = ""
	rec.Progress = 0

	recovery.StepBack(rec, g, edgeDist(g))

	require.NotEmpty(t, rec.Path)
	assert.Equal(t, "E", rec.Path[0], "A's only other neighbor besides B is E")
}

func TestApplyHeadOnRepathRefreshesLeases(t *testing.T) {
	g := lineGraph()
	rec := newRecord(1, "A", "D", []string{"B", "C", "D"})
	rec.Progress = 0
	verdict := arbiter.Verdict{Action: arbiter.RepathHeadOn, AvoidFrom: "A", AvoidTo: "B", Blocker: 2}

	recovery.ApplyHeadOnRepath(rec, verdict, g, edgeDist(g))

	require.NotEmpty(t, rec.ReservedNodes)
	assert.Equal(t, rec.Path[:rec.Config.HardBorrowLength], rec.ReservedNodes)
}
