package classifier

import (
	"context"

	"golang.org/x/sync/errgroup"

	"wifi-pose-backend/internal/models"
)

// Predictor is anything that maps one CSI vector to a model output
type Predictor interface {
	Predict(csi models.CSIVector) Output
}

// PredictRows runs p over rows on up to workers goroutines. Results are
// stored by row index, so the output order never depends on scheduling.
func PredictRows(ctx context.Context, p Predictor, rows []models.DatasetRow, workers int) ([]Output, error) {
	var outputs = make([]Output, len(rows))
	if len(rows) == 0 {
		return outputs, nil
	}
	workers = min(max(workers, 1), len(rows))
	var chunk = (len(rows) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(rows); start += chunk {
		var end = min(start+chunk, len(rows))
		var first = start
		g.Go(func() error {
			for i := first; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				outputs[i] = p.Predict(rows[i].CSI)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}
