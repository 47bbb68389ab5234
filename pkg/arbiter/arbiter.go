// Package arbiter implements a pure traffic-arbitration function: given an
// ego AGV and a fleet snapshot, decide whether the ego should MOVE, WAIT, or
// REPATH_HEAD_ON this tick.
//
// Arbitrate has no side effects and reads only value copies — it is safe
// to call from tests or from multiple goroutines against the same
// snapshot, consistent with treating the fleet snapshot a tick arbitrates
// against as a frozen, read-only view.
package arbiter

import (
	"math"
	"strconv"

	"github.com/ardalan-sia/agv-fleet-sim/pkg/agv"
)

// Action is the arbitration verdict's action.
type Action int

const (
	Move Action = iota
	Wait
	RepathHeadOn
)

// Verdict is the result of Arbitrate.
type Verdict struct {
	Action Action
	Reason string
	// AvoidFrom/AvoidTo name the undirected edge to avoid on replan, set
	// only for RepathHeadOn.
	AvoidFrom, AvoidTo string
	// Blocker is the id of the AGV whose state caused a WAIT/REPATH
	// verdict, or -1 if the verdict is Move.
	Blocker int
}

const proximityTieSlackPx = 5.0
const mergeYieldSlackPx = 15.0
const movingOccupantRadiusPx = 60.0

// rule evaluates one arbitration rule against a single other AGV, returning
// a fired Verdict and true, or a zero Verdict and false if the rule does
// not apply to this pair.
type rule func(ego, other agv.Record, nextNode string, positions agv.PositionIndex) (Verdict, bool)

// rules is the fixed R0-R5 priority order. The first rule that fires
// against any other AGV wins, scanning rule-by-rule across the whole fleet
// before moving to the next rule — "rules evaluated in this order, first
// fire wins" is a global priority over the per-rule fleet scan, not a
// per-AGV scan order.
var rules = []rule{
	evalR0,
	evalR1,
	evalR2a,
	evalR2b,
	evalR3,
	evalR4,
	evalR5,
}

// Arbitrate evaluates rules R0-R5 in order against ego and fleet (which
// may include ego itself; Arbitrate skips self-comparison). positions
// resolves node ids to pixel coordinates for the distance-based rules.
func Arbitrate(ego agv.Record, fleet []agv.Record, positions agv.PositionIndex) Verdict {
	nextNode, hasNext := ego.NextNode()
	if !hasNext {
		return Verdict{Action: Move, Blocker: -1}
	}

	for _, r := range rules {
		for _, other := range fleet {
			if other.ID == ego.ID {
				continue
			}
			if v, fired := r(ego, other, nextNode, positions); fired {
				return v
			}
		}
	}
	return Verdict{Action: Move, Blocker: -1}
}

func hasLease(other agv.Record, node string) bool {
	for _, n := range other.ReservedNodes {
		if n == node {
			return true
		}
	}
	return false
}

// R0: Reservation block.
func evalR0(ego, other agv.Record, nextNode string, _ agv.PositionIndex) (Verdict, bool) {
	if ego.Progress >= 0.05 {
		return Verdict{}, false
	}
	if hasLease(other, nextNode) {
		return Verdict{Action: Wait, Reason: "Node " + nextNode + " Reserved", Blocker: other.ID}, true
	}
	return Verdict{}, false
}

// R1: Head-on.
func evalR1(ego, other agv.Record, nextNode string, _ agv.PositionIndex) (Verdict, bool) {
	otherNext, ok := other.NextNode()
	if !ok {
		return Verdict{}, false
	}
	if nextNode == other.CurrentNode && otherNext == ego.CurrentNode {
		return Verdict{
			Action:    RepathHeadOn,
			Reason:    "Head-on with AGV " + strconv.Itoa(other.ID),
			AvoidFrom: ego.CurrentNode,
			AvoidTo:   nextNode,
			Blocker:   other.ID,
		}, true
	}
	return Verdict{}, false
}

// R2a: Stationary occupant.
func evalR2a(ego, other agv.Record, nextNode string, _ agv.PositionIndex) (Verdict, bool) {
	if ego.Progress >= 0.05 {
		return Verdict{}, false
	}
	if other.CurrentNode == nextNode && other.Progress < 0.05 {
		return Verdict{Action: Wait, Reason: "Dest Occupied", Blocker: other.ID}, true
	}
	return Verdict{}, false
}

// R2b: Entry contention.
func evalR2b(ego, other agv.Record, nextNode string, positions agv.PositionIndex) (Verdict, bool) {
	if ego.Progress >= 0.05 {
		return Verdict{}, false
	}
	otherNext, ok := other.NextNode()
	if !ok || otherNext != nextNode {
		return Verdict{}, false
	}

	egoDist := distanceToNode(ego, nextNode, positions)
	otherDist := distanceToNode(other, nextNode, positions)

	closer := otherDist < egoDist-proximityTieSlackPx
	tied := math.Abs(otherDist-egoDist) <= proximityTieSlackPx
	yield := closer || (tied && other.ID < ego.ID)
	if yield {
		return Verdict{Action: Wait, Reason: "Yield Entry", Blocker: other.ID}, true
	}
	return Verdict{}, false
}

// R3: Moving occupant near. Distance is measured from ego's current node,
// not its interpolated position — unlike R5, R3 has no progress gate, so
// mid-edge the two would otherwise disagree.
func evalR3(ego, other agv.Record, nextNode string, positions agv.PositionIndex) (Verdict, bool) {
	if other.CurrentNode != nextNode {
		return Verdict{}, false
	}
	egoX, egoY, ok := positions.Pos(ego.CurrentNode)
	if !ok {
		return Verdict{}, false
	}
	if euclid(egoX, egoY, other.X, other.Y) < movingOccupantRadiusPx {
		return Verdict{Action: Wait, Reason: "Waiting Node " + nextNode, Blocker: other.ID}, true
	}
	return Verdict{}, false
}

// R4: Mid-edge merge.
func evalR4(ego, other agv.Record, nextNode string, positions agv.PositionIndex) (Verdict, bool) {
	otherNext, ok := other.NextNode()
	if !ok || otherNext != nextNode {
		return Verdict{}, false
	}
	if ego.Progress < 0.05 {
		return Verdict{}, false
	}
	egoRemaining := distanceToNode(ego, nextNode, positions)
	otherRemaining := distanceToNode(other, nextNode, positions)
	if egoRemaining > otherRemaining+mergeYieldSlackPx {
		return Verdict{Action: Wait, Reason: "Merge Yield", Blocker: other.ID}, true
	}
	return Verdict{}, false
}

// R5: Proximity sensor. Deliberately reads ego.CurrentSpeed as-is (the raw
// pre-arbitration speed), not a hypothetical post-arbitration speed — see
// DESIGN.md's Open Question decisions for why this is preserved verbatim.
func evalR5(ego, other agv.Record, nextNode string, positions agv.PositionIndex) (Verdict, bool) {
	dist := euclid(ego.X, ego.Y, other.X, other.Y)
	if dist >= ego.Config.SafetyDistance {
		return Verdict{}, false
	}

	egoHeading := headingToward(ego, nextNode, positions)
	bearingToOther := math.Atan2(other.Y-ego.Y, other.X-ego.X)
	diff := normalizeAngle(bearingToOther - egoHeading)
	if math.Abs(diff) > math.Pi/2 {
		return Verdict{}, false
	}

	futureX := ego.X + ego.CurrentSpeed*math.Cos(egoHeading)
	futureY := ego.Y + ego.CurrentSpeed*math.Sin(egoHeading)
	futureDist := euclid(futureX, futureY, other.X, other.Y)

	if futureDist < dist {
		return Verdict{Action: Wait, Reason: "Front Sensor", Blocker: other.ID}, true
	}
	return Verdict{}, false
}

func euclid(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// headingToward returns the heading in radians of ego's active edge
// vector: from ego's current coordinates toward nextNode's coordinates.
// Used both to decide R5's forward cone and to predict ego's next
// position. Falls back to ego.Orientation (in radians) if nextNode's
// position cannot be resolved.
func headingToward(ego agv.Record, nextNode string, positions agv.PositionIndex) float64 {
	x, y, ok := positions.Pos(nextNode)
	if !ok {
		return ego.Orientation * math.Pi / 180
	}
	return math.Atan2(y-ego.Y, x-ego.X)
}

// distanceToNode returns the Euclidean distance from rec's current
// coordinates to the named node's coordinates.
func distanceToNode(rec agv.Record, nodeID string, positions agv.PositionIndex) float64 {
	x, y, ok := positions.Pos(nodeID)
	if !ok {
		return math.Inf(1)
	}
	return euclid(rec.X, rec.Y, x, y)
}
