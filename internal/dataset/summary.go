package dataset

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"

	"wifi-pose-backend/internal/models"
)

type Summary struct {
	Total         int
	Present       int
	PresenceRate  float64
	PoseCounts    [models.NumPoses]int
	PoseFrequency [models.NumPoses]float64 // among present rows
	AmplitudeMean float64
	AmplitudeStd  float64
}

func Summarize(rows []models.DatasetRow) Summary {
	var s = Summary{Total: len(rows)}
	if len(rows) == 0 {
		return s
	}

	var amplitudes = make([]float64, 0, len(rows)*models.NumSubcarriers)
	for _, row := range rows {
		amplitudes = append(amplitudes, row.CSI[:]...)
		if row.Label.Presence {
			s.Present++
			s.PoseCounts[row.Label.Pose]++
		}
	}

	s.PresenceRate = float64(s.Present) / float64(s.Total)
	if s.Present > 0 {
		for i, c := range s.PoseCounts {
			s.PoseFrequency[i] = float64(c) / float64(s.Present)
		}
	}
	s.AmplitudeMean, s.AmplitudeStd = stat.MeanStdDev(amplitudes, nil)
	return s
}

func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "samples: %d\n", s.Total)
	fmt.Fprintf(&sb, "human present: %d (%.1f%%)\n", s.Present, 100*s.PresenceRate)
	fmt.Fprintf(&sb, "no human: %d\n", s.Total-s.Present)
	for _, pose := range models.AllPoses() {
		fmt.Fprintf(&sb, "  %-6s %5d (%.1f%%)\n", pose, s.PoseCounts[pose], 100*s.PoseFrequency[pose])
	}
	fmt.Fprintf(&sb, "amplitude mean %.4f std %.4f", s.AmplitudeMean, s.AmplitudeStd)
	return sb.String()
}
