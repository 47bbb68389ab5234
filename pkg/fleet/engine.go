// Package fleet is the simulation driver: it owns the active graph and the
// fleet of AGV records, composes arbiter -> recovery -> kinematics into a
// single deterministic tick, runs the auto-pilot, and exposes the narrow
// Core API external collaborators use (spawn, setTarget, tick, snapshot, ...).
//
// The driver owns the Graph and fleet the way a simulator owner usually
// does, but replaces a goroutine-per-agent loop with a snapshot/commit
// tick: a frozen read snapshot feeds every AGV's decision within one tick,
// so no WaitGroup/channel machinery is needed at all.
package fleet

import (
	"math"

	"github.com/ardalan-sia/agv-fleet-sim/pkg/agv"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/arbiter"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/graph"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/kinematics"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/prng"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/recovery"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/simerr"
)

// autoPilotChance is the per-tick Bernoulli probability an idle/completed
// AGV requests a new random target when auto-pilot is on.
const autoPilotChance = 0.05

// idleSpeedThreshold bounds how slow an AGV must be coasting before
// auto-pilot will consider it eligible for a new target.
const idleSpeedThreshold = 0.1

var spawnPalette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c",
}

// Engine owns the active map, graph, and fleet. It is not safe for
// concurrent use — callers serialize their own access under a single
// cooperative thread.
type Engine struct {
	Map           agv.MapData
	Graph         *graph.Graph
	Positions     agv.PositionIndex
	Fleet         []agv.Record
	DefaultConfig agv.FleetConfig
	AutoPilot     bool
	Now           int64

	prng   *prng.Source
	nextID int
}

// NewEngine builds an engine around a generated (or hand-built) map and a
// fleet-wide default configuration, seeded so that auto-pilot draws are
// reproducible for a given seed.
func NewEngine(mapData agv.MapData, defaultConfig agv.FleetConfig, seed string) *Engine {
	return &Engine{
		Map:           mapData,
		Graph:         buildGraph(mapData),
		Positions:     agv.NewPositionIndex(mapData),
		DefaultConfig: defaultConfig,
		prng:          prng.New(seed),
	}
}

func buildGraph(m agv.MapData) *graph.Graph {
	g := graph.New()
	for _, n := range m.Nodes {
		g.AddNode(n.ID)
	}
	for _, e := range m.Edges {
		g.AddEdge(e.Source, e.Target, e.Weight)
	}
	return g
}

// Spawn places a new AGV at a node not within 2*safetyDistance of any
// existing AGV, falling back to a uniform-random node if every candidate is
// too close (or the fleet is empty, in which case the first node examined
// always qualifies).
func (e *Engine) Spawn() (int, error) {
	if len(e.Map.Nodes) == 0 {
		return 0, simerr.New(simerr.EmptyMap, "cannot spawn: map has no nodes")
	}

	nodeID := e.pickSpawnNode()

	e.nextID++
	id := e.nextID
	rec := agv.Record{
		ID:          id,
		Color:       spawnPalette[(id-1)%len(spawnPalette)],
		CurrentNode: nodeID,
		Config:      e.DefaultConfig,
		Status:      agv.Idle,
	}
	if x, y, ok := e.Positions.Pos(nodeID); ok {
		rec.X, rec.Y = x, y
	}
	e.Fleet = append(e.Fleet, rec)
	return id, nil
}

func (e *Engine) pickSpawnNode() string {
	threshold := 2 * e.DefaultConfig.SafetyDistance
	for _, n := range e.Map.Nodes {
		clear := true
		for _, other := range e.Fleet {
			if euclid(float64(n.X), float64(n.Y), other.X, other.Y) < threshold {
				clear = false
				break
			}
		}
		if clear {
			return n.ID
		}
	}
	return e.Map.Nodes[e.prng.IntN(len(e.Map.Nodes))].ID
}

// SetTarget plans a path for agvId to nodeId and assigns it, cancelling any
// in-progress navigation. If the AGV is mid-edge, the plan starts from the
// far end of its current edge and that far end is prefixed onto the result
// so the AGV finishes its current edge before following the new path.
// Returns simerr NoPath (leaving the AGV IDLE) if nodeId is unreachable.
func (e *Engine) SetTarget(agvID int, nodeID string) error {
	idx := e.indexOf(agvID)
	if idx < 0 {
		return simerr.New(simerr.InvalidAgvId, "no such agv: %d", agvID)
	}
	if _, ok := e.Map.NodeByID(nodeID); !ok {
		return simerr.New(simerr.InvalidNodeId, "no such node: %q", nodeID)
	}

	rec := &e.Fleet[idx]
	if rec.HasTarget() && rec.TargetNode == nodeID {
		rec.PathPlanningTime = e.Now
		return nil
	}

	if !e.planTo(rec, nodeID) {
		rec.Status = agv.Idle
		rec.Path = nil
		rec.TargetNode = ""
		rec.ReservedNodes = nil
		rec.WaitReason = "no path"
		return simerr.New(simerr.NoPath, "no path to %q", nodeID)
	}
	return nil
}

// planTo computes and installs a path toward nodeID, honoring the mid-edge
// prefix rule SetTarget and the auto-pilot both rely on. Returns false
// (leaving rec untouched) if no path exists.
func (e *Engine) planTo(rec *agv.Record, nodeID string) bool {
	startNode := rec.CurrentNode
	prefix := ""
	if rec.Progress > 0 {
		if next, ok := rec.NextNode(); ok {
			startNode = next
			prefix = next
		}
	}

	var path []string
	if startNode != nodeID {
		if _, reachable := e.Graph.ConnectedComponent(startNode)[nodeID]; !reachable {
			return false
		}
		path = e.Graph.FindPath(startNode, nodeID, graph.NewAvoidSet())
		if len(path) == 0 {
			return false
		}
	}
	if prefix != "" {
		path = append([]string{prefix}, path...)
	}

	rec.TargetNode = nodeID
	rec.Path = path
	rec.PathRank = 0
	rec.RetryCount = 0
	rec.WaitTimer = 0
	rec.WaitReason = ""
	rec.PathPlanningTime = e.Now
	if len(path) == 0 {
		rec.Status = agv.Completed
		rec.CurrentSpeed = 0
		rec.ReservedNodes = nil
	} else {
		rec.Status = agv.Moving
		rec.RefreshLeases()
	}
	return true
}

// RemoveAgv deletes an AGV from the fleet with no further lifecycle effect.
func (e *Engine) RemoveAgv(agvID int) error {
	idx := e.indexOf(agvID)
	if idx < 0 {
		return simerr.New(simerr.InvalidAgvId, "no such agv: %d", agvID)
	}
	e.Fleet = append(e.Fleet[:idx], e.Fleet[idx+1:]...)
	return nil
}

// UpdateConfig sets a single config key on one AGV, or on the fleet default
// when agvID is nil. Out-of-range values are rejected with
// simerr.InvalidConfigValue.
func (e *Engine) UpdateConfig(agvID *int, key string, value float64) error {
	if agvID == nil {
		return applyConfigKey(&e.DefaultConfig, key, value)
	}
	idx := e.indexOf(*agvID)
	if idx < 0 {
		return simerr.New(simerr.InvalidAgvId, "no such agv: %d", *agvID)
	}
	if err := applyConfigKey(&e.Fleet[idx].Config, key, value); err != nil {
		return err
	}
	e.Fleet[idx].RefreshLeases()
	return nil
}

func applyConfigKey(cfg *agv.FleetConfig, key string, value float64) error {
	switch key {
	case "maxSpeed":
		if value <= 0 {
			return simerr.New(simerr.InvalidConfigValue, "maxSpeed must be positive")
		}
		cfg.MaxSpeed = value
	case "acceleration":
		if value <= 0 {
			return simerr.New(simerr.InvalidConfigValue, "acceleration must be positive")
		}
		cfg.Acceleration = value
	case "deceleration":
		if value <= 0 {
			return simerr.New(simerr.InvalidConfigValue, "deceleration must be positive")
		}
		cfg.Deceleration = value
	case "safetyDistance":
		if value < 0 {
			return simerr.New(simerr.InvalidConfigValue, "safetyDistance must be non-negative")
		}
		cfg.SafetyDistance = value
	case "hardBorrowLength":
		if value < 0 {
			return simerr.New(simerr.InvalidConfigValue, "hardBorrowLength must be non-negative")
		}
		cfg.HardBorrowLength = int(value)
	default:
		return simerr.New(simerr.InvalidConfigValue, "unknown config key %q", key)
	}
	return nil
}

// SetMap atomically swaps the active graph and clears the fleet.
func (e *Engine) SetMap(mapData agv.MapData) error {
	if len(mapData.Nodes) == 0 {
		return simerr.New(simerr.EmptyMap, "map has no nodes")
	}
	e.Map = mapData
	e.Graph = buildGraph(mapData)
	e.Positions = agv.NewPositionIndex(mapData)
	e.Fleet = nil
	return nil
}

// SetAutoPilot toggles automatic target assignment for idle/completed AGVs.
func (e *Engine) SetAutoPilot(on bool) { e.AutoPilot = on }

// Snapshot returns a deep-enough copy of the fleet (safe for the caller to
// retain or mutate) along with the current tick count.
func (e *Engine) Snapshot() ([]agv.Record, int64) {
	return cloneFleet(e.Fleet), e.Now
}

// Tick advances the simulation by one step: every AGV's verdict is computed
// against the fleet state as it was at the start of the tick, and all
// writes land in a fresh fleet slice that becomes next tick's read
// snapshot. Iteration order does not change any verdict; it only fixes the
// order in which auto-pilot draws from the engine PRNG.
func (e *Engine) Tick() {
	readSnapshot := cloneFleet(e.Fleet)
	next := make([]agv.Record, len(e.Fleet))
	for i := range e.Fleet {
		rec := readSnapshot[i]
		e.stepAGV(&rec, readSnapshot)
		next[i] = rec
	}
	e.Fleet = next
	e.Now++
}

func (e *Engine) stepAGV(rec *agv.Record, snapshot []agv.Record) {
	if rec.Status == agv.Idle || rec.Status == agv.Completed {
		e.maybeAutoPilot(rec, snapshot)
		return
	}

	nextNode, hasNext := rec.NextNode()
	if !hasNext {
		// malformed mid-navigation state with an exhausted path; settle the
		// AGV as COMPLETED rather than crash the driver.
		rec.Status = agv.Completed
		rec.TargetNode = ""
		rec.CurrentSpeed = 0
		rec.ReservedNodes = nil
		return
	}

	verdict := arbiter.Arbitrate(*rec, snapshot, e.Positions)
	switch verdict.Action {
	case arbiter.Wait:
		blocker := findByID(snapshot, verdict.Blocker)
		recovery.ApplyWait(rec, verdict, blocker, e.Graph, e.edgeDistance)
		rec.CurrentSpeed = kinematics.Decelerate(rec.CurrentSpeed, rec.Config.Deceleration)
	case arbiter.RepathHeadOn:
		recovery.ApplyHeadOnRepath(rec, verdict, e.Graph, e.edgeDistance)
		rec.CurrentSpeed = kinematics.Decelerate(rec.CurrentSpeed, rec.Config.Deceleration)
	default:
		e.advance(rec, nextNode)
	}

	e.updatePose(rec)
}

func (e *Engine) advance(rec *agv.Record, nextNode string) {
	edgeDist, ok := e.edgeDistance(rec.CurrentNode, nextNode)
	if !ok {
		// missing edge on a live path is a data inconsistency the driver
		// cannot repair mid-tick; leave the AGV exactly as it was.
		return
	}

	v := &kinematics.Vehicle{
		CurrentSpeed:     rec.CurrentSpeed,
		Progress:         rec.Progress,
		ProgressDistance: rec.ProgressDistance,
		MaxSpeed:         rec.Config.MaxSpeed,
		Acceleration:     rec.Config.Acceleration,
		Deceleration:     rec.Config.Deceleration,
		PathLen:          len(rec.Path),
	}
	result := kinematics.Advance(v, edgeDist)
	rec.CurrentSpeed = v.CurrentSpeed
	rec.Progress = v.Progress
	rec.ProgressDistance = v.ProgressDistance

	if result.Arrived {
		e.commitArrival(rec, nextNode)
	} else {
		rec.Status = agv.Moving
	}
}

// commitArrival applies arrival bookkeeping: the AGV's position snaps to
// the exact node, path rotates left by one, and the AGV either continues
// MOVING with a refreshed lease or finishes COMPLETED.
func (e *Engine) commitArrival(rec *agv.Record, arrivedNode string) {
	if x, y, ok := e.Positions.Pos(arrivedNode); ok {
		rec.X, rec.Y = x, y
	}
	rec.PreviousNode = rec.CurrentNode
	rec.CurrentNode = arrivedNode
	rec.Path = rec.Path[1:]
	rec.Progress = 0
	rec.ProgressDistance = 0

	if len(rec.Path) == 0 {
		rec.Status = agv.Completed
		rec.TargetNode = ""
		rec.CurrentSpeed = 0
		rec.ReservedNodes = nil
		rec.Stats.ArrivalCount++
		return
	}
	rec.Status = agv.Moving
	rec.RefreshLeases()
}

// updatePose interpolates x/y/orientation along the active edge from
// Progress. Arbitration and recovery only ever touch CurrentNode, Path, and
// Progress; pixel position is a derived view recomputed every tick.
func (e *Engine) updatePose(rec *agv.Record) {
	next, ok := rec.NextNode()
	if !ok {
		return
	}
	x0, y0, ok0 := e.Positions.Pos(rec.CurrentNode)
	x1, y1, ok1 := e.Positions.Pos(next)
	if !ok0 || !ok1 {
		return
	}
	rec.X = x0 + (x1-x0)*rec.Progress
	rec.Y = y0 + (y1-y0)*rec.Progress
	if x0 != x1 || y0 != y1 {
		rec.Orientation = math.Atan2(y1-y0, x1-x0) * 180 / math.Pi
	}
}

func (e *Engine) maybeAutoPilot(rec *agv.Record, snapshot []agv.Record) {
	if !e.AutoPilot || rec.CurrentSpeed >= idleSpeedThreshold {
		return
	}
	if !e.prng.Bool(autoPilotChance) {
		return
	}
	target := e.pickAutoTarget(rec, snapshot)
	if target == "" {
		return
	}
	e.planTo(rec, target)
}

// pickAutoTarget chooses uniformly among nodes that are neither the AGV's
// current node nor currently claimed as another AGV's targetNode, in
// node-placement order so the draw is reproducible for a given seed.
func (e *Engine) pickAutoTarget(rec *agv.Record, snapshot []agv.Record) string {
	excluded := map[string]struct{}{rec.CurrentNode: {}}
	for _, other := range snapshot {
		if other.ID != rec.ID && other.TargetNode != "" {
			excluded[other.TargetNode] = struct{}{}
		}
	}

	var candidates []string
	for _, n := range e.Map.Nodes {
		if _, bad := excluded[n.ID]; !bad {
			candidates = append(candidates, n.ID)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[e.prng.IntN(len(candidates))]
}

// edgeDistance returns the Euclidean pixel distance between two nodes, not
// the graph edge weight: weight is a jittered routing cost used for path
// selection, while progress/speed/braking all operate in pixel units along
// the physical edge. Using the weight here would make progress no longer
// track the geometric fraction traversed and would let a vehicle cover more
// than currentSpeed pixels in a tick whenever weight < geometric distance.
func (e *Engine) edgeDistance(from, to string) (float64, bool) {
	x1, y1, ok1 := e.Positions.Pos(from)
	x2, y2, ok2 := e.Positions.Pos(to)
	if !ok1 || !ok2 {
		return 0, false
	}
	return euclid(x1, y1, x2, y2), true
}

func (e *Engine) indexOf(agvID int) int {
	for i, r := range e.Fleet {
		if r.ID == agvID {
			return i
		}
	}
	return -1
}

func findByID(fleet []agv.Record, id int) agv.Record {
	for _, r := range fleet {
		if r.ID == id {
			return r
		}
	}
	return agv.Record{}
}

func cloneFleet(fleet []agv.Record) []agv.Record {
	out := make([]agv.Record, len(fleet))
	for i, r := range fleet {
		out[i] = r.Clone()
	}
	return out
}

func euclid(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}
