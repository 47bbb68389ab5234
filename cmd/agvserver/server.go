package main

import (
	"sync"

	"github.com/ardalan-sia/agv-fleet-sim/pkg/agv"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/fleet"
)

// engineHandle serializes HTTP-handler and ticker-goroutine access to a
// single *fleet.Engine. The engine itself assumes a single cooperative
// thread; a host with concurrent request handlers must supply that
// serialization itself, which is all this type does.
type engineHandle struct {
	mu sync.Mutex
	e  *fleet.Engine
}

func newEngineHandle(e *fleet.Engine) *engineHandle {
	return &engineHandle{e: e}
}

func (h *engineHandle) tick() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.e.Tick()
}

func (h *engineHandle) spawn() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.e.Spawn()
}

func (h *engineHandle) setTarget(agvID int, nodeID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.e.SetTarget(agvID, nodeID)
}

func (h *engineHandle) removeAgv(agvID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.e.RemoveAgv(agvID)
}

func (h *engineHandle) updateConfig(agvID *int, key string, value float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.e.UpdateConfig(agvID, key, value)
}

func (h *engineHandle) setAutoPilot(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.e.SetAutoPilot(on)
}

func (h *engineHandle) snapshot() ([]agv.Record, int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.e.Snapshot()
}

func (h *engineHandle) mapData() agv.MapData {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.e.Map
}
