package trainer

import (
	"fmt"
	"runtime"

	"wifi-pose-backend/internal/ml"
	"wifi-pose-backend/internal/models"
)

type Config struct {
	Epochs          int
	BatchSize       int
	LearningRate    float64
	ValidationRatio float64
	Seed            int64
	Workers         int
}

func DefaultConfig() Config {
	return Config{
		Epochs:          50,
		BatchSize:       32,
		LearningRate:    ml.DefaultLearningRate,
		ValidationRatio: 0.2,
		Seed:            42,
		Workers:         runtime.NumCPU(),
	}
}

func (c Config) validate() error {
	if c.Epochs < 1 {
		return fmt.Errorf("%w: epochs must be positive, got %d", models.ErrInvalidArgument, c.Epochs)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be positive, got %d", models.ErrInvalidArgument, c.BatchSize)
	}
	if !(c.LearningRate > 0) {
		return fmt.Errorf("%w: learning rate must be positive, got %v", models.ErrInvalidArgument, c.LearningRate)
	}
	if !(c.ValidationRatio > 0 && c.ValidationRatio < 1) {
		return fmt.Errorf("%w: validation ratio must be in (0, 1), got %v", models.ErrInvalidArgument, c.ValidationRatio)
	}
	return nil
}
