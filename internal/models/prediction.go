package models

import "time"

// NumKeypoints is the size of every skeletal keypoint overlay
const NumKeypoints = 19

// Keypoint is a 2-D landmark in normalized [0,1]x[0,1] canvas space
type Keypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Prediction is the decoded output of one forward pass
type Prediction struct {
	PresenceProbability float64           `json:"presence_probability"`
	PoseLogits          [NumPoses]float64 `json:"pose_logits"`
	Confidence          [NumPoses]float64 `json:"-"`
	HumanPresent        bool              `json:"human_present"`
	Pose                Pose              `json:"-"`
	Keypoints           []Keypoint        `json:"keypoints"`
}

// ConfidenceMap keys the softmax distribution by pose name
func (p *Prediction) ConfidenceMap() map[string]float64 {
	m := make(map[string]float64, NumPoses)
	for i, c := range p.Confidence {
		m[Pose(i).String()] = c
	}
	return m
}

// InferenceResponse is the wire shape returned to HTTP and MQTT callers
type InferenceResponse struct {
	RequestID    string             `json:"request_id,omitempty"`
	DeviceID     string             `json:"device_id,omitempty"`
	HumanPresent bool               `json:"human_present"`
	PoseClass    string             `json:"pose_class"`
	Keypoints    []Keypoint         `json:"keypoints"`
	Confidence   map[string]float64 `json:"confidence"`
	Batch        []BatchEntry       `json:"batch,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// BatchEntry is the per-row result of a batched request
type BatchEntry struct {
	Row                 int                `json:"row"`
	HumanPresent        bool               `json:"human_present"`
	PoseClass           string             `json:"pose_class"`
	PresenceProbability float64            `json:"presence_probability"`
	Confidence          map[string]float64 `json:"confidence"`
}

// NewInferenceResponse builds the wire response from the primary prediction
func NewInferenceResponse(requestID string, primary *Prediction) *InferenceResponse {
	return &InferenceResponse{
		RequestID:    requestID,
		HumanPresent: primary.HumanPresent,
		PoseClass:    primary.Pose.String(),
		Keypoints:    primary.Keypoints,
		Confidence:   primary.ConfidenceMap(),
	}
}

// InferenceRequest is a feature matrix submitted over MQTT
type InferenceRequest struct {
	RequestID string      `json:"request_id"`
	DeviceID  string      `json:"device_id"`
	Timestamp time.Time   `json:"timestamp"`
	Features  [][]float64 `json:"features"`
	Batch     bool        `json:"batch"`
}

// PredictionRecord is the persisted log entry for one inference call
type PredictionRecord struct {
	Timestamp           time.Time `json:"timestamp"`
	RequestID           string    `json:"request_id"`
	Source              string    `json:"source"` // "http" or "mqtt/<device_id>"
	Rows                int       `json:"rows"`
	HumanPresent        bool      `json:"human_present"`
	PoseClass           string    `json:"pose_class"`
	PresenceProbability float64   `json:"presence_probability"`
	Confidence          float64   `json:"confidence"` // confidence of PoseClass
	InputHash           string    `json:"input_hash"`
	SignalRMS           float64   `json:"signal_rms"`
	SignalPeak          float64   `json:"signal_peak"`
	SignalLevelDB       float64   `json:"signal_level_db"`
	Quiet               bool      `json:"quiet"`
	InferenceTimeMs     float64   `json:"inference_time_ms"`
	ModelVersion        string    `json:"model_version"`
}
