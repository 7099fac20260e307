package api

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"wifi-pose-backend/internal/aggregator"
	"wifi-pose-backend/internal/dataset"
	"wifi-pose-backend/internal/models"
	"wifi-pose-backend/internal/services"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 1000
)

// PoseInfo describes one supported pose class
type PoseInfo struct {
	Label     int               `json:"label"`
	Name      string            `json:"name"`
	Keypoints []models.Keypoint `json:"keypoints"`
}

// handleInfer classifies an uploaded CSV of CSI amplitudes
func (s *Server) handleInfer(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["file"]) == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "No file provided")
	}

	file := form.File["file"][0]
	if file.Filename == "" {
		return errorJSON(c, fiber.StatusBadRequest, "No file selected")
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".csv") {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid file type")
	}

	if err := os.MkdirAll(s.config.UploadDir, 0o755); err != nil {
		log.Printf("API: Error creating upload dir: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	path := filepath.Join(s.config.UploadDir, uuid.New().String()+".csv")
	defer os.Remove(path)

	if err := c.SaveFile(file, path); err != nil {
		log.Printf("API: Error saving upload: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	f, err := os.Open(path)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	defer f.Close()

	matrix, err := dataset.ReadFeatureMatrix(f)
	if err != nil {
		return errorJSON(c, statusFor(err), err.Error())
	}

	resp, err := s.predictions.Infer(c.UserContext(), "http", c.Get("X-Request-ID"), matrix, c.QueryBool("batch"))
	if err != nil {
		return errorJSON(c, statusFor(err), err.Error())
	}
	return c.JSON(resp)
}

// handleHealth reports liveness and the loaded model
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "ok",
		"model_version":  s.predictions.Inference().ModelVersion(),
		"model_topology": s.config.ModelTopology,
		"history":        s.history != nil,
		"feed_clients":   s.feed.ClientCount(),
	})
}

// handleDevices lists the MQTT devices seen since startup
func (s *Server) handleDevices(c *fiber.Ctx) error {
	tracker := s.predictions.Devices()
	devices := make([]aggregator.DeviceState, 0)
	for _, id := range tracker.GetAllDevices() {
		if state, ok := tracker.GetDeviceState(id); ok {
			devices = append(devices, state)
		}
	}
	return c.JSON(devices)
}

// handlePoses lists the pose classes with their keypoint templates
func (s *Server) handlePoses(c *fiber.Ctx) error {
	poses := make([]PoseInfo, 0, models.NumPoses)
	for _, p := range models.AllPoses() {
		poses = append(poses, PoseInfo{
			Label:     int(p),
			Name:      p.String(),
			Keypoints: services.KeypointsFor(p.String()),
		})
	}
	return c.JSON(poses)
}

// handlePredictions returns the latest logged predictions
func (s *Server) handlePredictions(c *fiber.Ctx) error {
	if s.history == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "Prediction history not configured")
	}

	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit < 1 || limit > maxHistoryLimit {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid limit")
	}

	records, err := s.history.RecentPredictions(c.UserContext(), limit)
	if err != nil {
		log.Printf("API: Error reading prediction history: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	if records == nil {
		records = []models.PredictionRecord{}
	}
	return c.JSON(records)
}

func statusFor(err error) int {
	if errors.Is(err, models.ErrInvalidInput) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}
