package services

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"wifi-pose-backend/internal/classifier"
	"wifi-pose-backend/internal/ml"
	"wifi-pose-backend/internal/models"
)

// versioned is implemented by classifiers that can identify their weights
type versioned interface {
	Version() string
}

type loadedModel struct {
	clf     classifier.Predictor
	version string
}

// InferenceService decodes classifier outputs for callers. The classifier
// is swapped atomically by Reload; each Predict call uses one classifier for
// all of its rows.
type InferenceService struct {
	model atomic.Pointer[loadedModel]
}

// InferenceResult holds every decoded row; Primary is the first one
type InferenceResult struct {
	Primary      *models.Prediction
	Rows         []*models.Prediction
	ModelVersion string
	Elapsed      time.Duration
}

// NewInferenceService creates a service around an already loaded classifier
func NewInferenceService(clf classifier.Predictor) (*InferenceService, error) {
	s := &InferenceService{}
	if err := s.Reload(clf); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the classifier for subsequent requests
func (s *InferenceService) Reload(clf classifier.Predictor) error {
	if clf == nil {
		return fmt.Errorf("%w: no classifier loaded", models.ErrConfiguration)
	}
	version := "unknown"
	if v, ok := clf.(versioned); ok {
		version = v.Version()
	}
	s.model.Store(&loadedModel{clf: clf, version: version})
	return nil
}

// ModelVersion reports the version of the current classifier
func (s *InferenceService) ModelVersion() string {
	return s.model.Load().version
}

// Predict validates the feature matrix and decodes one prediction per row
func (s *InferenceService) Predict(ctx context.Context, matrix [][]float64) (*InferenceResult, error) {
	vectors, err := ValidateMatrix(matrix)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	model := s.model.Load()
	result := &InferenceResult{
		Rows:         make([]*models.Prediction, len(vectors)),
		ModelVersion: model.version,
	}
	for i, csi := range vectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Rows[i] = Decode(model.clf.Predict(csi))
	}
	result.Primary = result.Rows[0]
	result.Elapsed = time.Since(start)
	return result, nil
}

// ValidateMatrix checks that the matrix is non-empty and that every row
// holds exactly 30 finite numbers
func ValidateMatrix(matrix [][]float64) ([]models.CSIVector, error) {
	if len(matrix) == 0 {
		return nil, fmt.Errorf("%w: feature matrix is empty", models.ErrInvalidInput)
	}
	vectors := make([]models.CSIVector, len(matrix))
	for i, row := range matrix {
		if len(row) != models.NumSubcarriers {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", models.ErrInvalidInput, i, len(row), models.NumSubcarriers)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d column %d is not finite", models.ErrInvalidInput, i, j)
			}
		}
		copy(vectors[i][:], row)
	}
	return vectors, nil
}

// Decode turns raw model output into a prediction. A presence probability
// of exactly 0.5 counts as absent; ties between pose logits go to the
// lowest label.
func Decode(out classifier.Output) *models.Prediction {
	p := &models.Prediction{
		PresenceProbability: out.Presence,
		PoseLogits:          out.PoseLogits,
		HumanPresent:        out.Presence > 0.5,
		Pose:                models.Pose(ml.ArgMax(out.PoseLogits[:])),
	}
	ml.Softmax(p.Confidence[:], out.PoseLogits[:])
	p.Keypoints = KeypointsFor(p.Pose.String())
	return p
}

// Response renders the wire response; batch adds every row
func (r *InferenceResult) Response(requestID string, batch bool) *models.InferenceResponse {
	resp := models.NewInferenceResponse(requestID, r.Primary)
	if !batch {
		return resp
	}
	resp.Batch = make([]models.BatchEntry, len(r.Rows))
	for i, p := range r.Rows {
		resp.Batch[i] = models.BatchEntry{
			Row:                 i,
			HumanPresent:        p.HumanPresent,
			PoseClass:           p.Pose.String(),
			PresenceProbability: p.PresenceProbability,
			Confidence:          p.ConfidenceMap(),
		}
	}
	return resp
}
