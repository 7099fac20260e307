package mqtt

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"wifi-pose-backend/internal/models"
)

func TestExtractDeviceID(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"csi/esp32-001/infer", "esp32-001"},
		{"csi/lab", "lab"},
		{"csi", ""},
	}
	for _, tt := range tests {
		if got := extractDeviceID(tt.topic); got != tt.want {
			t.Errorf("extractDeviceID(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}

func TestFormatTopic(t *testing.T) {
	if got := formatTopic("pose/{device_id}/result", "esp32-001"); got != "pose/esp32-001/result" {
		t.Errorf("Expected pose/esp32-001/result, got %s", got)
	}
}

func TestParseInferenceRequest(t *testing.T) {
	req, err := parseInferenceRequest("csi/esp32-007/infer", []byte(`{"request_id":"r1","features":[[1,2,3]],"batch":true}`))
	if err != nil {
		t.Fatalf("parseInferenceRequest failed: %v", err)
	}
	if req.DeviceID != "esp32-007" {
		t.Errorf("Expected device from topic, got %q", req.DeviceID)
	}
	if req.Timestamp.IsZero() {
		t.Error("Expected server timestamp")
	}
	if !req.Batch || len(req.Features) != 1 || len(req.Features[0]) != 3 {
		t.Errorf("unexpected request %+v", req)
	}

	req, _ = parseInferenceRequest("csi/topic-id/infer", []byte(`{"device_id":"payload-id","features":[]}`))
	if req.DeviceID != "payload-id" {
		t.Errorf("Expected payload device ID to win, got %q", req.DeviceID)
	}

	if _, err := parseInferenceRequest("csi/x/infer", []byte(`not json`)); err == nil {
		t.Error("Expected error for malformed payload")
	}
	if _, err := parseInferenceRequest("csi", []byte(`{}`)); err == nil {
		t.Error("Expected error without device ID")
	}
}

func TestEncodeResult(t *testing.T) {
	resp := &models.InferenceResponse{RequestID: "r1", DeviceID: "esp32-001", PoseClass: "Sit", HumanPresent: true}
	topic, payload, err := encodeResult("pose/{device_id}/result", resp)
	if err != nil {
		t.Fatalf("encodeResult failed: %v", err)
	}
	if topic != "pose/esp32-001/result" {
		t.Errorf("unexpected topic %s", topic)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if decoded["pose_class"] != "Sit" || decoded["human_present"] != true {
		t.Errorf("unexpected payload %s", payload)
	}

	if _, _, err := encodeResult("pose/{device_id}/result", &models.InferenceResponse{}); err == nil {
		t.Error("Expected error without device ID")
	}
}

func TestStatusPayload(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	payload, err := statusPayload("wifi-pose-1", statusOffline, now)
	if err != nil {
		t.Fatalf("statusPayload failed: %v", err)
	}
	var msg StatusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if msg.ClientID != "wifi-pose-1" || msg.Status != "offline" || !msg.Timestamp.Equal(now) {
		t.Errorf("unexpected status %+v", msg)
	}
}

func TestClientIdentifier(t *testing.T) {
	if got := clientIdentifier("gateway"); got != "gateway" {
		t.Errorf("Expected configured ID to be kept, got %s", got)
	}
	first, second := clientIdentifier(""), clientIdentifier("")
	if !strings.HasPrefix(first, "wifi-pose-") || len(first) != len("wifi-pose-")+8 {
		t.Errorf("unexpected generated ID %s", first)
	}
	if first == second {
		t.Errorf("Expected distinct generated IDs, got %s twice", first)
	}
}
