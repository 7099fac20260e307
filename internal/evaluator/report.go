package evaluator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wifi-pose-backend/internal/models"
)

type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

type ClassReport struct {
	Pose string `json:"pose"`
	ClassMetrics
}

// Report holds presence metrics over all rows and pose metrics over the
// presence-positive rows only. Metrics with a zero denominator are 0.
type Report struct {
	Rows              int       `json:"rows"`
	PresenceAccuracy  float64   `json:"presence_accuracy"`
	PresenceConfusion [2][2]int `json:"presence_confusion"` // [true][predicted], absent first

	PoseSkipped   bool                                  `json:"pose_skipped"`
	PoseRows      int                                   `json:"pose_rows"`
	PoseAccuracy  float64                               `json:"pose_accuracy"`
	PoseConfusion [models.NumPoses][models.NumPoses]int `json:"pose_confusion"`
	PerClass      []ClassReport                         `json:"per_class,omitempty"`
	MacroAvg      ClassMetrics                          `json:"macro_avg"`
	WeightedAvg   ClassMetrics                          `json:"weighted_avg"`
}

func (r *Report) scorePoses(truth, predicted []models.Pose) {
	r.PoseRows = len(truth)
	var hits int
	for i := range truth {
		r.PoseConfusion[truth[i]][predicted[i]]++
		if truth[i] == predicted[i] {
			hits++
		}
	}
	r.PoseAccuracy = float64(hits) / float64(len(truth))

	r.PerClass = make([]ClassReport, 0, models.NumPoses)
	for _, pose := range models.AllPoses() {
		var tp = r.PoseConfusion[pose][pose]
		var support, predictedCount int
		for other := 0; other < models.NumPoses; other++ {
			support += r.PoseConfusion[pose][other]
			predictedCount += r.PoseConfusion[other][pose]
		}
		var m = ClassMetrics{
			Precision: ratio(tp, predictedCount),
			Recall:    ratio(tp, support),
			Support:   support,
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.PerClass = append(r.PerClass, ClassReport{Pose: pose.String(), ClassMetrics: m})

		r.MacroAvg.Precision += m.Precision / models.NumPoses
		r.MacroAvg.Recall += m.Recall / models.NumPoses
		r.MacroAvg.F1 += m.F1 / models.NumPoses

		var weight = float64(support) / float64(r.PoseRows)
		r.WeightedAvg.Precision += m.Precision * weight
		r.WeightedAvg.Recall += m.Recall * weight
		r.WeightedAvg.F1 += m.F1 * weight
	}
	r.MacroAvg.Support = r.PoseRows
	r.WeightedAvg.Support = r.PoseRows
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Presence accuracy: %.4f (n=%d)\n", r.PresenceAccuracy, r.Rows)
	fmt.Fprintf(&sb, "Presence confusion (rows true, columns predicted):\n")
	fmt.Fprintf(&sb, "%12s %8s %8s\n", "", "absent", "present")
	for i, name := range []string{"absent", "present"} {
		fmt.Fprintf(&sb, "%12s %8d %8d\n", name, r.PresenceConfusion[i][0], r.PresenceConfusion[i][1])
	}

	if r.PoseSkipped {
		sb.WriteString("\nPose metrics skipped: no rows with a human present\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\nPose accuracy: %.4f (n=%d)\n", r.PoseAccuracy, r.PoseRows)
	fmt.Fprintf(&sb, "Pose confusion (rows true, columns predicted):\n")
	fmt.Fprintf(&sb, "%12s", "")
	for _, pose := range models.AllPoses() {
		fmt.Fprintf(&sb, " %8s", pose)
	}
	sb.WriteString("\n")
	for _, pose := range models.AllPoses() {
		fmt.Fprintf(&sb, "%12s", pose)
		for _, count := range r.PoseConfusion[pose] {
			fmt.Fprintf(&sb, " %8d", count)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\n%12s %10s %10s %10s %10s\n\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range r.PerClass {
		fmt.Fprintf(&sb, "%12s %10.2f %10.2f %10.2f %10d\n", c.Pose, c.Precision, c.Recall, c.F1, c.Support)
	}
	fmt.Fprintf(&sb, "\n%12s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.PoseAccuracy, r.PoseRows)
	fmt.Fprintf(&sb, "%12s %10.2f %10.2f %10.2f %10d\n", "macro avg",
		r.MacroAvg.Precision, r.MacroAvg.Recall, r.MacroAvg.F1, r.MacroAvg.Support)
	fmt.Fprintf(&sb, "%12s %10.2f %10.2f %10.2f %10d\n", "weighted avg",
		r.WeightedAvg.Precision, r.WeightedAvg.Recall, r.WeightedAvg.F1, r.WeightedAvg.Support)
	return sb.String()
}

func (r *Report) SaveJSON(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
