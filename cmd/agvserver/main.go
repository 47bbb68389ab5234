// Command agvserver is the HTTP + WebSocket host that viewers, config and
// telemetry widgets, and playback controls talk to. It drives a single
// pkg/fleet.Engine on a fixed-rate ticker and exposes the Core API over
// REST, plus a /ws endpoint that broadcasts each tick's snapshot.
//
// The app wiring is a standard fiber setup: cors+logger middleware, a
// websocket upgrade guard, and a background broadcast loop.
package main

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"

	"github.com/ardalan-sia/agv-fleet-sim/internal/hostcfg"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/agv"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/fleet"
	"github.com/ardalan-sia/agv-fleet-sim/pkg/mapgen"
)

func main() {
	cfg := hostcfg.Load()

	m := mapgen.Generate(cfg.DefaultSeed, cfg.DefaultNodes)
	handle := newEngineHandle(fleet.NewEngine(m, agv.DefaultFleetConfig(), cfg.DefaultSeed))
	handle.setAutoPilot(true)

	conns := newConnectionManager()
	go driveTicks(handle, conns, cfg.TickInterval)

	app := fiber.New()
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	registerRoutes(app, handle, conns)

	log.Printf("agvserver: listening on %s", cfg.ListenAddr)
	log.Fatal(app.Listen(cfg.ListenAddr))
}

func driveTicks(h *engineHandle, conns *connectionManager, intervalMs int) {
	if intervalMs <= 0 {
		intervalMs = 16
	}
	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		h.tick()
		agvs, now := h.snapshot()
		conns.broadcast(snapshotMessage{Now: now, Agvs: agvs})
	}
}

func registerRoutes(app *fiber.App, h *engineHandle, conns *connectionManager) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "viewers": conns.count()})
	})

	api := app.Group("/api")

	api.Get("/map", func(c *fiber.Ctx) error {
		return c.JSON(h.mapData())
	})

	api.Get("/snapshot", func(c *fiber.Ctx) error {
		agvs, now := h.snapshot()
		return c.JSON(fiber.Map{"agvs": agvs, "now": now})
	})

	api.Post("/agvs", func(c *fiber.Ctx) error {
		id, err := h.spawn()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"agvId": id})
	})

	api.Delete("/agvs/:id", func(c *fiber.Ctx) error {
		id, err := strconv.Atoi(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid agv id"})
		}
		if err := h.removeAgv(id); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	api.Post("/agvs/:id/target", func(c *fiber.Ctx) error {
		id, err := strconv.Atoi(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid agv id"})
		}
		var body struct {
			NodeID string `json:"nodeId"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := h.setTarget(id, body.NodeID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(fiber.StatusOK)
	})

	api.Post("/config", func(c *fiber.Ctx) error {
		var body struct {
			AgvID *int    `json:"agvId"`
			Key   string  `json:"key"`
			Value float64 `json:"value"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := h.updateConfig(body.AgvID, body.Key, body.Value); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(fiber.StatusOK)
	})

	api.Post("/autopilot", func(c *fiber.Ctx) error {
		var body struct {
			Enabled bool `json:"enabled"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		h.setAutoPilot(body.Enabled)
		return c.SendStatus(fiber.StatusOK)
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		id := conns.register(c)
		defer conns.unregister(id)

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))
}
