package services

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"wifi-pose-backend/internal/aggregator"
	"wifi-pose-backend/internal/models"
)

// ErrRateLimited answers MQTT devices that send requests too often
var ErrRateLimited = errors.New("rate limited: request sent too soon after the previous one")

// PredictionStore persists the prediction log
type PredictionStore interface {
	SavePrediction(ctx context.Context, record *models.PredictionRecord) error
}

// PredictionService runs inference for HTTP and MQTT callers, logs every
// call and forwards MQTT answers to the publisher
type PredictionService struct {
	inference *InferenceService
	store     PredictionStore
	devices   *aggregator.DeviceTracker
	signal    aggregator.SignalConfig

	// Input channel from the MQTT subscriber
	RequestChan chan *models.InferenceRequest

	// Output channel to the MQTT publisher
	ResultChan chan *models.InferenceResponse

	onPrediction atomic.Pointer[PredictionHook]
}

// PredictionHook receives every successful response
type PredictionHook func(source string, resp *models.InferenceResponse)

// PredictionServiceConfig holds configuration for prediction service
type PredictionServiceConfig struct {
	RequestChannelSize int
	ResultChannelSize  int
	MinRequestInterval time.Duration // per MQTT device, zero disables rate limiting
	Signal             aggregator.SignalConfig
}

// DefaultPredictionServiceConfig returns default configuration
func DefaultPredictionServiceConfig() PredictionServiceConfig {
	return PredictionServiceConfig{
		RequestChannelSize: 50,
		ResultChannelSize:  50,
		MinRequestInterval: 0,
		Signal:             aggregator.DefaultSignalConfig(),
	}
}

// NewPredictionService creates a new prediction service; store may be nil
func NewPredictionService(
	inference *InferenceService,
	store PredictionStore,
	config PredictionServiceConfig,
) *PredictionService {
	return &PredictionService{
		inference:   inference,
		store:       store,
		devices:     aggregator.NewDeviceTracker(config.MinRequestInterval),
		signal:      config.Signal,
		RequestChan: make(chan *models.InferenceRequest, config.RequestChannelSize),
		ResultChan:  make(chan *models.InferenceResponse, config.ResultChannelSize),
	}
}

// Inference exposes the underlying service (model version, reload)
func (s *PredictionService) Inference() *InferenceService {
	return s.inference
}

// Devices exposes the per-device request state of MQTT callers
func (s *PredictionService) Devices() *aggregator.DeviceTracker {
	return s.devices
}

// SetOnPrediction installs the hook that sees every successful response.
// It may be called while requests are being served; nil removes the hook.
func (s *PredictionService) SetOnPrediction(fn PredictionHook) {
	if fn == nil {
		s.onPrediction.Store(nil)
		return
	}
	s.onPrediction.Store(&fn)
}

// Infer predicts, logs the call and returns the wire response. An empty
// requestID gets a fresh one.
func (s *PredictionService) Infer(ctx context.Context, source, requestID string, matrix [][]float64, batch bool) (*models.InferenceResponse, error) {
	if requestID == "" {
		requestID = uuid.New().String()
	}

	result, err := s.inference.Predict(ctx, matrix)
	if err != nil {
		log.Printf("PredictionService: %s request %s rejected: %v", source, requestID, err)
		return nil, err
	}

	s.record(ctx, source, requestID, matrix, result)
	resp := result.Response(requestID, batch)
	if hook := s.onPrediction.Load(); hook != nil {
		(*hook)(source, resp)
	}
	return resp, nil
}

// Start processes MQTT inference requests until the context is cancelled
func (s *PredictionService) Start(ctx context.Context) {
	log.Println("PredictionService: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("PredictionService: Shutting down...")
			close(s.ResultChan)
			log.Println("PredictionService: Shutdown complete")
			return
		case req, ok := <-s.RequestChan:
			if !ok {
				close(s.ResultChan)
				return
			}
			s.processRequest(ctx, req)
		}
	}
}

// processRequest answers a single MQTT request; invalid input is answered
// with an error payload instead of being dropped
func (s *PredictionService) processRequest(ctx context.Context, req *models.InferenceRequest) {
	var resp *models.InferenceResponse
	var err error
	if s.devices.Allow(req.DeviceID, time.Now()) {
		resp, err = s.Infer(ctx, "mqtt/"+req.DeviceID, req.RequestID, req.Features, req.Batch)
	} else {
		err = ErrRateLimited
	}
	if err != nil {
		if !errors.Is(err, models.ErrInvalidInput) && !errors.Is(err, ErrRateLimited) {
			log.Printf("PredictionService: Error handling request from %s: %v", req.DeviceID, err)
		}
		resp = &models.InferenceResponse{RequestID: req.RequestID, Error: err.Error()}
	}
	resp.DeviceID = req.DeviceID

	// Send response to publisher (non-blocking with timeout)
	select {
	case s.ResultChan <- resp:
	case <-time.After(1 * time.Second):
		log.Printf("PredictionService: Warning - result channel full, dropping response for %s", req.DeviceID)
	}
}

// record logs the prediction and saves it when a store is configured.
// Store failures never fail the request.
func (s *PredictionService) record(ctx context.Context, source, requestID string, matrix [][]float64, result *InferenceResult) {
	metrics := aggregator.AnalyzeSignal(matrix, s.signal)
	hash := aggregator.ComputeFeatureHash(matrix)
	primary := result.Primary

	log.Printf("PredictionService: %s request %s rows=%d present=%v pose=%s p=%.3f rms=%.3f level=%.1fdB quiet=%v hash=%s (%v)",
		source, requestID, len(matrix), primary.HumanPresent, primary.Pose,
		primary.PresenceProbability, metrics.RMS, metrics.LevelDB, metrics.IsQuiet, hash[:8], result.Elapsed)

	if s.store == nil {
		return
	}

	record := &models.PredictionRecord{
		Timestamp:           time.Now(),
		RequestID:           requestID,
		Source:              source,
		Rows:                len(matrix),
		HumanPresent:        primary.HumanPresent,
		PoseClass:           primary.Pose.String(),
		PresenceProbability: primary.PresenceProbability,
		Confidence:          primary.Confidence[primary.Pose],
		InputHash:           hash,
		SignalRMS:           metrics.RMS,
		SignalPeak:          metrics.Peak,
		SignalLevelDB:       metrics.LevelDB,
		Quiet:               metrics.IsQuiet,
		InferenceTimeMs:     float64(result.Elapsed.Microseconds()) / 1000,
		ModelVersion:        result.ModelVersion,
	}
	if err := s.store.SavePrediction(ctx, record); err != nil {
		log.Printf("PredictionService: Error saving prediction %s: %v", requestID, err)
	}
}
