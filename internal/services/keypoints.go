package services

import "wifi-pose-backend/internal/models"

// Keypoint templates in normalized canvas coordinates. Order: head, neck,
// spine, pelvis, tailbone, right shoulder, right elbow, left shoulder,
// left elbow, right hand, right fingers, left hand, left fingers, right hip,
// right knee, right ankle, left hip, left knee, left ankle. Each point is {x, y}.
var keypointTemplates = map[string][models.NumKeypoints][2]float64{
	models.PoseStand.String(): {
		{0.5, 0.1}, {0.5, 0.2}, {0.5, 0.3}, {0.5, 0.45}, {0.5, 0.5},
		{0.6, 0.2}, {0.65, 0.35}, {0.4, 0.2}, {0.35, 0.35},
		{0.7, 0.5}, {0.7, 0.5}, {0.3, 0.5}, {0.3, 0.5},
		{0.55, 0.6}, {0.55, 0.75}, {0.55, 0.9}, {0.45, 0.6}, {0.45, 0.75}, {0.45, 0.9},
	},
	models.PoseSit.String(): {
		{0.5, 0.2}, {0.5, 0.3}, {0.5, 0.4}, {0.5, 0.5}, {0.5, 0.5},
		{0.6, 0.3}, {0.65, 0.4}, {0.4, 0.3}, {0.35, 0.4},
		{0.7, 0.5}, {0.7, 0.5}, {0.3, 0.5}, {0.3, 0.5},
		{0.55, 0.5}, {0.6, 0.7}, {0.5, 0.9}, {0.45, 0.5}, {0.4, 0.7}, {0.5, 0.9},
	},
	models.PoseKneel.String(): {
		{0.5, 0.2}, {0.5, 0.3}, {0.5, 0.4}, {0.5, 0.5}, {0.5, 0.55},
		{0.6, 0.3}, {0.7, 0.4}, {0.4, 0.3}, {0.3, 0.4},
		{0.75, 0.5}, {0.8, 0.5}, {0.25, 0.5}, {0.2, 0.5},
		{0.55, 0.55}, {0.55, 0.75}, {0.7, 0.9}, {0.45, 0.55}, {0.45, 0.75}, {0.3, 0.9},
	},
	models.PoseSleep.String(): {
		{0.1, 0.5}, {0.2, 0.5}, {0.4, 0.5}, {0.6, 0.5}, {0.7, 0.5},
		{0.2, 0.4}, {0.3, 0.35}, {0.2, 0.6}, {0.3, 0.65},
		{0.4, 0.3}, {0.45, 0.25}, {0.4, 0.7}, {0.45, 0.75},
		{0.6, 0.45}, {0.75, 0.4}, {0.9, 0.4}, {0.6, 0.55}, {0.75, 0.6}, {0.9, 0.6},
	},
}

// KeypointsFor returns the skeleton overlay for a pose label. Unknown
// labels get every point at the canvas center.
func KeypointsFor(label string) []models.Keypoint {
	var result = make([]models.Keypoint, models.NumKeypoints)
	template, ok := keypointTemplates[label]
	if !ok {
		for i := range result {
			result[i] = models.Keypoint{X: 0.5, Y: 0.5}
		}
		return result
	}
	for i, p := range template {
		result[i] = models.Keypoint{X: p[0], Y: p[1]}
	}
	return result
}
