// Package api serves the HTTP inference endpoints
package api

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"wifi-pose-backend/internal/models"
	"wifi-pose-backend/internal/services"
)

// PredictionHistory reads back the prediction log
type PredictionHistory interface {
	RecentPredictions(ctx context.Context, limit int) ([]models.PredictionRecord, error)
}

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Port          string
	UploadDir     string
	ModelTopology string
}

// Server is the HTTP front end of the prediction service
type Server struct {
	app         *fiber.App
	config      ServerConfig
	predictions *services.PredictionService
	feed        *Feed

	// Optional, nil when ClickHouse is disabled
	history PredictionHistory
}

// NewServer creates the server and registers all routes
func NewServer(config ServerConfig, predictions *services.PredictionService, history PredictionHistory) *Server {
	s := &Server{
		config:      config,
		predictions: predictions,
		history:     history,
		feed:        NewFeed(),
	}
	predictions.SetOnPrediction(s.feed.Publish)

	app := fiber.New(fiber.Config{
		AppName:               "WiFi Pose Backend",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	app.Post("/infer", s.handleInfer)
	app.Get("/health", s.handleHealth)
	app.Get("/poses", s.handlePoses)
	app.Get("/predictions", s.handlePredictions)
	app.Get("/devices", s.handleDevices)

	// Live prediction feed
	app.Use("/ws", upgradeOnly)
	app.Get("/ws/predictions", websocket.New(s.feed.serve))

	s.app = app
	return s
}

// Feed returns the live prediction feed; the caller runs it
func (s *Server) Feed() *Feed {
	return s.feed
}

// Start blocks serving HTTP until Shutdown is called
func (s *Server) Start() error {
	log.Printf("HTTP server listening on :%s", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting connections and waits for active requests
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
