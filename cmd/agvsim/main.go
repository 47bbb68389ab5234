// Command agvsim is a headless CLI: a process that holds one live Engine
// and executes tick/spawn/setTarget/snapshot commands against it, one JSON
// object per line of stdin, printing one JSON result per line of stdout.
// There is no persistence between invocations — the map and fleet live
// only for the process's lifetime, seeded at startup by constructing an
// Engine directly from a generated map and a default fleet config.
//
// The command loop replaces a one-shot hardcoded demo run (construct a
// graph, register agents, run once) with a standing dispatch loop over the
// Core API, so a driving process can script a scenario interactively.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ardalan-sia/agv-fleet-sim/internal/hostcfg"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/agv"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/fleet"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/mapgen"
)

type command struct {
	Op     string  `json:"op"`
	AgvID  int     `json:"agvId,omitempty"`
	NodeID string  `json:"nodeId,omitempty"`
	Key    string  `json:"key,omitempty"`
	Value  float64 `json:"value,omitempty"`
	Ticks  int     `json:"ticks,omitempty"`
}

type result struct {
	Op     string      `json:"op"`
	Ok     bool        `json:"ok"`
	Error  string      `json:"error,omitempty"`
	Result interface{} `json:"result,omitempty"`
}

func main() {
	cfg := hostcfg.Load()

	seed := flag.String("seed", cfg.DefaultSeed, "map generation seed")
	nodes := flag.Int("nodes", cfg.DefaultNodes, "node count for the generated map")
	flag.Parse()

	m := mapgen.Generate(*seed, *nodes)
	e := fleet.NewEngine(m, agv.DefaultFleetConfig(), *seed)

	log.Printf("agvsim: map %q generated with %d nodes, %d edges", m.RunID, len(m.Nodes), len(m.Edges))

	run(e, os.Stdin, os.Stdout)
}

func run(e *fleet.Engine, in *os.File, out *os.File) {
	scanner := bufio.NewScanner(in)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var cmd command
		if err := json.Unmarshal(line, &cmd); err != nil {
			_ = enc.Encode(result{Ok: false, Error: fmt.Sprintf("invalid command: %v", err)})
			continue
		}
		_ = enc.Encode(dispatch(e, cmd))
	}
}

func dispatch(e *fleet.Engine, cmd command) result {
	switch cmd.Op {
	case "spawn":
		id, err := e.Spawn()
		if err != nil {
			return result{Op: cmd.Op, Error: err.Error()}
		}
		return result{Op: cmd.Op, Ok: true, Result: map[string]int{"agvId": id}}

	case "setTarget":
		if err := e.SetTarget(cmd.AgvID, cmd.NodeID); err != nil {
			return result{Op: cmd.Op, Error: err.Error()}
		}
		return result{Op: cmd.Op, Ok: true}

	case "removeAgv":
		if err := e.RemoveAgv(cmd.AgvID); err != nil {
			return result{Op: cmd.Op, Error: err.Error()}
		}
		return result{Op: cmd.Op, Ok: true}

	case "updateConfig":
		var agvPtr *int
		if cmd.AgvID != 0 {
			agvPtr = &cmd.AgvID
		}
		if err := e.UpdateConfig(agvPtr, cmd.Key, cmd.Value); err != nil {
			return result{Op: cmd.Op, Error: err.Error()}
		}
		return result{Op: cmd.Op, Ok: true}

	case "setAutoPilot":
		e.SetAutoPilot(cmd.Value != 0)
		return result{Op: cmd.Op, Ok: true}

	case "tick":
		n := cmd.Ticks
		if n <= 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			e.Tick()
		}
		return result{Op: cmd.Op, Ok: true, Result: map[string]int64{"now": e.Now}}

	case "snapshot":
		agvs, now := e.Snapshot()
		return result{Op: cmd.Op, Ok: true, Result: map[string]interface{}{"agvs": agvs, "now": now}}

	default:
		return result{Op: cmd.Op, Error: fmt.Sprintf("unknown op %q", cmd.Op)}
	}
}
