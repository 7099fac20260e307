package evaluator

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"wifi-pose-backend/internal/classifier"
	"wifi-pose-backend/internal/dataset"
	"wifi-pose-backend/internal/ml"
	"wifi-pose-backend/internal/models"
)

// Evaluator scores a trained classifier against labeled rows
type Evaluator struct {
	clf     classifier.Predictor
	workers int
}

func New(clf classifier.Predictor, workers int) *Evaluator {
	return &Evaluator{clf: clf, workers: max(workers, 1)}
}

// Evaluate draws its own held-out split of size testRatio, independent of
// the split used during training, and scores it.
func (e *Evaluator) Evaluate(ctx context.Context, rows []models.DatasetRow, rnd *rand.Rand, testRatio float64) (*Report, error) {
	if !(testRatio > 0 && testRatio <= 1) {
		return nil, fmt.Errorf("%w: test ratio must be in (0, 1], got %v", models.ErrInvalidArgument, testRatio)
	}
	_, test := dataset.HoldOut(rows, rnd, testRatio)
	log.Printf("Evaluator: scoring %d of %d rows", len(test), len(rows))
	return e.EvaluateRows(ctx, test)
}

// EvaluateRows scores presence over every row and pose only over rows whose
// true presence is 1. Rows are processed in order.
func (e *Evaluator) EvaluateRows(ctx context.Context, rows []models.DatasetRow) (*Report, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows to evaluate", models.ErrInvalidArgument)
	}

	outputs, err := classifier.PredictRows(ctx, e.clf, rows, e.workers)
	if err != nil {
		return nil, err
	}

	var report = &Report{Rows: len(rows)}
	var presenceHits int
	var poseTrue, posePred []models.Pose
	for i, out := range outputs {
		var label = rows[i].Label
		var predicted = out.Presence > 0.5
		report.PresenceConfusion[boolIndex(label.Presence)][boolIndex(predicted)]++
		if predicted == label.Presence {
			presenceHits++
		}
		if label.Presence {
			poseTrue = append(poseTrue, label.Pose)
			posePred = append(posePred, models.Pose(ml.ArgMax(out.PoseLogits[:])))
		}
	}
	report.PresenceAccuracy = float64(presenceHits) / float64(len(rows))

	if len(poseTrue) == 0 {
		report.PoseSkipped = true
		log.Printf("Evaluator: no presence-positive rows, pose metrics skipped")
		return report, nil
	}
	report.scorePoses(poseTrue, posePred)
	return report, nil
}

func boolIndex(b bool) int {
	if b {
		return 1
	}
	return 0
}
