package trainer

import (
	"wifi-pose-backend/internal/classifier"
	"wifi-pose-backend/internal/ml"
	"wifi-pose-backend/internal/models"
)

// sampleLoss is BCE on the presence probability plus cross-entropy on the
// pose logits. The pose term applies to every row; absent rows carry the
// sentinel pose.
func sampleLoss(out classifier.Output, label models.Label) float64 {
	return ml.BinaryCrossEntropy(out.Presence, label.PresenceValue()) +
		ml.CrossEntropy(out.PoseLogits[:], int(label.Pose))
}

// sampleLossPrime returns d(sampleLoss)/d(raw outputs), presence logit first
func sampleLossPrime(out classifier.Output, label models.Label) []float64 {
	var errs = make([]float64, 1+models.NumPoses)
	errs[classifier.PresenceOutput] = ml.BinaryCrossEntropyPrime(out.Presence, label.PresenceValue())
	ml.CrossEntropyPrime(errs[classifier.PresenceOutput+1:], out.PoseLogits[:], int(label.Pose))
	return errs
}

// isPresent is the decision rule shared with inference: strictly above one half
func isPresent(probability float64) bool {
	return probability > 0.5
}

// batchedMean averages per-batch means over consecutive batches of size
// batchSize; the last batch may be shorter
func batchedMean(losses []float64, batchSize int) float64 {
	var total float64
	var batches int
	for i := 0; i < len(losses); i += batchSize {
		var batch = losses[i:min(i+batchSize, len(losses))]
		var sum float64
		for _, l := range batch {
			sum += l
		}
		total += sum / float64(len(batch))
		batches++
	}
	return total / float64(batches)
}
