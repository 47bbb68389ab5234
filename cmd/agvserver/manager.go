package main

import (
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/ardalan-sia/agv-fleet-sim/pkg/agv"
)

// connectionManager tracks live WebSocket viewers and broadcasts fleet
// snapshots to all of them. A single broadcast group is enough here — there
// is no split between producer and viewer client kinds.
type connectionManager struct {
	mu      sync.RWMutex
	clients map[string]*websocket.Conn
}

func newConnectionManager() *connectionManager {
	return &connectionManager{clients: make(map[string]*websocket.Conn)}
}

func (m *connectionManager) register(conn *websocket.Conn) string {
	id := uuid.NewString()
	m.mu.Lock()
	m.clients[id] = conn
	m.mu.Unlock()
	log.Printf("agvserver: viewer %s connected (%s)", id, conn.RemoteAddr())
	return id
}

func (m *connectionManager) unregister(id string) {
	m.mu.Lock()
	delete(m.clients, id)
	m.mu.Unlock()
	log.Printf("agvserver: viewer %s disconnected", id)
}

func (m *connectionManager) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

type snapshotMessage struct {
	Now  int64        `json:"now"`
	Agvs []agv.Record `json:"agvs"`
}

func (m *connectionManager) broadcast(msg snapshotMessage) {
	m.mu.RLock()
	var dead []string
	for id, conn := range m.clients {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("agvserver: write to viewer %s failed: %v", id, err)
			dead = append(dead, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range dead {
		m.unregister(id)
	}
}
