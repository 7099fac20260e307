package trainer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"wifi-pose-backend/internal/classifier"
	"wifi-pose-backend/internal/dataset"
	"wifi-pose-backend/internal/ml"
	"wifi-pose-backend/internal/models"
)

// ErrNumericInstability stops training when a loss becomes NaN or infinite
var ErrNumericInstability = fmt.Errorf("%w: loss is not finite", models.ErrNumeric)

type State int

const (
	StateInitialized State = iota
	StateTraining
	StateValidating
	StatePersisted
	StateTerminal
)

var stateNames = [...]string{"initialized", "training", "validating", "persisted", "terminal"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

type EpochStats struct {
	RunID            string        `json:"run_id"`
	Epoch            int           `json:"epoch"`
	TrainLoss        float64       `json:"train_loss"`
	ValLoss          float64       `json:"val_loss"`
	PresenceAccuracy float64       `json:"presence_accuracy"`
	PoseAccuracy     float64       `json:"pose_accuracy"`
	Duration         time.Duration `json:"duration"`
}

// Trainer fits one model once. Batches are processed sequentially so a
// fixed seed reproduces the run; only validation forward passes are parallel.
type Trainer struct {
	config  Config
	model   *classifier.Model
	opt     *ml.Adam
	rnd     *rand.Rand
	runID   string
	state   State
	history []EpochStats

	// OnEpoch, if set, is called after every validation pass
	OnEpoch func(EpochStats)
}

func New(config Config, model *classifier.Model) (*Trainer, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Trainer{
		config: config,
		model:  model,
		opt:    ml.NewAdam(config.LearningRate),
		rnd:    rand.New(rand.NewSource(config.Seed)),
		runID:  uuid.New().String(),
		state:  StateInitialized,
	}, nil
}

func (t *Trainer) State() State             { return t.state }
func (t *Trainer) RunID() string            { return t.runID }
func (t *Trainer) Model() *classifier.Model { return t.model }

func (t *Trainer) History() []EpochStats {
	var result = make([]EpochStats, len(t.history))
	copy(result, t.history)
	return result
}

// Fit splits rows 80/20 once, then runs the configured number of epochs.
// Any error leaves the trainer in StateTerminal.
func (t *Trainer) Fit(ctx context.Context, rows []models.DatasetRow) (history []EpochStats, err error) {
	if t.state != StateInitialized {
		return nil, fmt.Errorf("%w: trainer is %v, want %v", models.ErrInvalidArgument, t.state, StateInitialized)
	}
	defer func() {
		if err != nil {
			t.state = StateTerminal
		}
	}()

	training, validation := dataset.TrainValidationSplit(rows, t.rnd, t.config.ValidationRatio)
	if len(training) == 0 || len(validation) == 0 {
		return nil, fmt.Errorf("%w: %d rows are too few for a train/validation split", models.ErrInvalidArgument, len(rows))
	}

	log.Printf("Trainer: run %s started, %d training rows, %d validation rows", t.runID, len(training), len(validation))
	defer log.Printf("Trainer: run %s finished", t.runID)

	for epoch := 1; epoch <= t.config.Epochs; epoch++ {
		var start = time.Now()

		t.state = StateTraining
		trainLoss, err := t.trainEpoch(ctx, training)
		if err != nil {
			return nil, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		t.state = StateValidating
		stats, err := t.validate(ctx, validation)
		if err != nil {
			return nil, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		stats.RunID = t.runID
		stats.Epoch = epoch
		stats.TrainLoss = trainLoss
		stats.Duration = time.Since(start)
		t.history = append(t.history, stats)

		log.Printf("Trainer: epoch %d/%d train loss %.4f val loss %.4f presence acc %.4f pose acc %.4f (%v)",
			epoch, t.config.Epochs, stats.TrainLoss, stats.ValLoss,
			stats.PresenceAccuracy, stats.PoseAccuracy, stats.Duration.Round(time.Millisecond))
		if t.OnEpoch != nil {
			t.OnEpoch(stats)
		}
	}
	return t.History(), nil
}

func (t *Trainer) trainEpoch(ctx context.Context, training []models.DatasetRow) (float64, error) {
	t.rnd.Shuffle(len(training), func(i, j int) {
		training[i], training[j] = training[j], training[i]
	})

	var params = t.model.Params()
	var totalLoss float64
	var batches int
	for i := 0; i < len(training); i += t.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		var batch = training[i:min(i+t.config.BatchSize, len(training))]
		var batchLoss float64
		for _, row := range batch {
			var trace = t.model.Forward(classifier.Sequence(row.CSI))
			batchLoss += sampleLoss(trace.Output, row.Label)
			t.model.Backward(trace, sampleLossPrime(trace.Output, row.Label))
		}
		batchLoss /= float64(len(batch))
		if !ml.IsFinite(batchLoss) {
			ml.ResetGradients(params)
			return 0, fmt.Errorf("%w: batch %d", ErrNumericInstability, batches)
		}
		ml.ApplyGradients(params, t.opt, 1/float64(len(batch)))
		totalLoss += batchLoss
		batches++
	}
	return totalLoss / float64(batches), nil
}

func (t *Trainer) validate(ctx context.Context, validation []models.DatasetRow) (EpochStats, error) {
	var stats EpochStats
	outputs, err := classifier.PredictRows(ctx, t.model, validation, t.config.Workers)
	if err != nil {
		return stats, err
	}

	var losses = make([]float64, len(outputs))
	var presenceHits, poseHits int
	for i, out := range outputs {
		var label = validation[i].Label
		losses[i] = sampleLoss(out, label)
		if isPresent(out.Presence) == label.Presence {
			presenceHits++
		}
		if models.Pose(ml.ArgMax(out.PoseLogits[:])) == label.Pose {
			poseHits++
		}
	}
	var n = float64(len(validation))
	stats.ValLoss = batchedMean(losses, t.config.BatchSize)
	if !ml.IsFinite(stats.ValLoss) {
		return stats, fmt.Errorf("%w: validation", ErrNumericInstability)
	}
	stats.PresenceAccuracy = float64(presenceHits) / n
	stats.PoseAccuracy = float64(poseHits) / n
	return stats, nil
}

// Persist writes the model and the loss curve, then the trainer is done
func (t *Trainer) Persist(modelPath, curvePath string) error {
	if len(t.history) == 0 {
		return errors.New("nothing to persist: Fit has not completed an epoch")
	}
	if err := t.model.Save(modelPath); err != nil {
		t.state = StateTerminal
		return err
	}
	t.state = StatePersisted
	log.Printf("Trainer: stored model %s", modelPath)

	if curvePath != "" {
		if err := SaveLossCurve(curvePath, t.history); err != nil {
			t.state = StateTerminal
			return err
		}
		log.Printf("Trainer: stored loss curve %s", curvePath)
	}
	t.state = StateTerminal
	return nil
}
