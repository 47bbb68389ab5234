// Package recovery implements a deadlock ladder — timed retry, ranked
// detour, and step-back reversal — plus the REPATH_HEAD_ON handler's
// turn-on-edge construction. It mutates agv.Record in place — callers
// (pkg/fleet) hold the exclusive write access the engine's snapshot/commit
// tick guarantees.
package recovery

import (
	"github.com/ardalan-sia/agv-fleet-sim/pkg/agv"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/arbiter"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/graph"
)

// RetryInterval is the WAIT-to-retry period in ticks.
const RetryInterval = 60

// MaxRetriesPerRank is the retry budget before advancing PathRank.
const MaxRetriesPerRank = 3

// EdgeDistance resolves the length, in pixels, of the edge between two
// adjacent nodes.
// Passed in by pkg/fleet rather than re-deriving it here, since both the
// driver and recovery need the same lookup.
type EdgeDistance func(from, to string) (float64, bool)

// ApplyWait handles a WAIT verdict: decelerate (left to pkg/kinematics,
// called separately by the driver), bump WaitTimer, and on crossing
// RetryInterval either step back, detour, or remain WAITING with a reset
// timer. blocker is the snapshot record of the AGV named by
// verdict.Blocker; a zero Record (ID 0, as callers pass when the blocker
// id is unknown) never counts as stuck.
func ApplyWait(rec *agv.Record, verdict arbiter.Verdict, blocker agv.Record, g *graph.Graph, edgeDist EdgeDistance) {
	rec.Status = agv.Waiting
	rec.WaitReason = verdict.Reason
	rec.WaitTimer++

	if rec.WaitTimer <= RetryInterval {
		return
	}

	rec.WaitTimer = 0
	rec.RetryCount++

	blockerIsStuck := blocker.ID != 0 && (blocker.Status == agv.Waiting || blocker.Status == agv.Blocked)
	if rec.RetryCount >= 3 && blockerIsStuck {
		StepBack(rec, g, edgeDist)
		rec.RetryCount = 0
		return
	}

	nextNode, hasNext := rec.NextNode()
	if !hasNext {
		return
	}

	if rec.RetryCount >= MaxRetriesPerRank {
		rec.PathRank++
	}

	avoid := graph.NewAvoidSet()
	avoid.AvoidNode(nextNode)
	newPath := g.FindPath(rec.CurrentNode, rec.TargetNode, avoid)
	if len(newPath) == 0 {
		// no detour exists; stay WAITING with the timer reset above.
		return
	}

	rec.Path = newPath
	if rec.Progress < 0.05 {
		rec.Status = agv.Detour
	} else {
		rec.Status = agv.Repathing
	}
	rec.RefreshLeases()
}

// ApplyHeadOnRepath handles a REPATH_HEAD_ON verdict: replan avoiding the
// offending edge, using the turn-on-edge construction when the vehicle is
// already partway down that edge.
func ApplyHeadOnRepath(rec *agv.Record, verdict arbiter.Verdict, g *graph.Graph, edgeDist EdgeDistance) {
	avoid := graph.NewAvoidSet()
	avoid.AvoidEdge(verdict.AvoidFrom, verdict.AvoidTo)

	if rec.Progress < 0.05 {
		newPath := g.FindPath(rec.CurrentNode, rec.TargetNode, avoid)
		if len(newPath) == 0 {
			rec.Status = agv.Waiting
			rec.WaitReason = "no detour"
			rec.WaitTimer = 0
			return
		}
		rec.Path = newPath
		rec.PathRank = 0
		rec.Status = agv.Repathing
		rec.RefreshLeases()
		return
	}

	turnOnEdge(rec, g, edgeDist, avoid)
	rec.PathRank = 0
}

// StepBack executes a step-back maneuver: reverse on the current edge if
// partway across it, else retreat to PreviousNode if still adjacent, else
// any neighbor other than path[0]; then replan from the retreat node back
// to TargetNode.
func StepBack(rec *agv.Record, g *graph.Graph, edgeDist EdgeDistance) {
	if rec.Progress > 0.1 {
		turnOnEdge(rec, g, edgeDist, graph.NewAvoidSet())
		return
	}

	retreatNode := chooseRetreatNode(rec, g)
	if retreatNode == "" {
		// fully boxed in; remain at current node and let the next tick's
		// WAIT ladder try again.
		rec.Status = agv.Waiting
		rec.WaitTimer = 0
		return
	}

	avoid := graph.NewAvoidSet()
	newPath := g.FindPath(retreatNode, rec.TargetNode, avoid)
	rec.Path = append([]string{retreatNode}, newPath...)
	rec.Progress = 0
	rec.ProgressDistance = 0
	rec.Status = agv.Detour
	rec.RefreshLeases()
}

func chooseRetreatNode(rec *agv.Record, g *graph.Graph) string {
	if rec.PreviousNode != "" {
		for _, nb := range g.Neighbors(rec.CurrentNode) {
			if nb.Node == rec.PreviousNode {
				return rec.PreviousNode
			}
		}
	}
	nextNode, _ := rec.NextNode()
	for _, nb := range g.Neighbors(rec.CurrentNode) {
		if nb.Node != nextNode {
			return nb.Node
		}
	}
	return ""
}

// turnOnEdge implements the mid-edge direction reversal: the far end of
// the current edge becomes the new CurrentNode, the original CurrentNode
// is prepended to a path freshly planned from that original CurrentNode (so
// the vehicle finishes crossing the edge, now reversed, before following
// the detour), and Progress is
// inverted so motion continues smoothly with no teleportation.
func turnOnEdge(rec *agv.Record, g *graph.Graph, edgeDist EdgeDistance, avoid graph.AvoidSet) {
	farEnd, hasNext := rec.NextNode()
	if !hasNext {
		return
	}
	originalCurrent := rec.CurrentNode

	newPath := g.FindPath(originalCurrent, rec.TargetNode, avoid)

	rec.CurrentNode = farEnd
	rec.PreviousNode = originalCurrent
	rec.Path = append([]string{originalCurrent}, newPath...)

	dist, ok := edgeDist(originalCurrent, farEnd)
	if ok && dist > 0 {
		rec.Progress = 1 - rec.Progress
		rec.ProgressDistance = dist * rec.Progress
	} else {
		rec.Progress = 1 - rec.Progress
	}

	rec.Status = agv.Repathing
	rec.RefreshLeases()
}
