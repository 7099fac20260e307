package trainer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LossCurve is the JSON form of the training history
type LossCurve struct {
	RunID     string       `json:"run_id"`
	TrainLoss []float64    `json:"train_loss"`
	ValLoss   []float64    `json:"val_loss"`
	Epochs    []EpochStats `json:"epochs"`
}

func NewLossCurve(history []EpochStats) LossCurve {
	var curve = LossCurve{
		TrainLoss: make([]float64, len(history)),
		ValLoss:   make([]float64, len(history)),
		Epochs:    history,
	}
	for i, s := range history {
		curve.RunID = s.RunID
		curve.TrainLoss[i] = s.TrainLoss
		curve.ValLoss[i] = s.ValLoss
	}
	return curve
}

// SaveLossCurve writes epoch,train_loss,val_loss to path and the same
// series as JSON next to it (path with a .json extension).
func SaveLossCurve(path string, history []EpochStats) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create loss curve: %w", err)
	}
	var w = csv.NewWriter(f)
	w.Write([]string{"epoch", "train_loss", "val_loss"})
	for _, s := range history {
		w.Write([]string{
			strconv.Itoa(s.Epoch),
			strconv.FormatFloat(s.TrainLoss, 'f', 6, 64),
			strconv.FormatFloat(s.ValLoss, 'f', 6, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write loss curve: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(NewLossCurve(history), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(jsonPath(path), data, 0644)
}

func jsonPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
}
