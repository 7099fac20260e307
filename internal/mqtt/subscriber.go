package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"wifi-pose-backend/internal/models"
)

// Subscriber receives inference requests and writes them to a channel
type Subscriber struct {
	client mqtt.Client

	// Output channel (written by subscriber, read by the prediction service)
	RequestChan chan *models.InferenceRequest

	// Topic pattern, e.g. "csi/+/infer"
	requestTopic string
}

// SubscriberConfig holds configuration for MQTT subscriber
type SubscriberConfig struct {
	RequestTopic string // e.g., "csi/+/infer"
}

// NewSubscriber creates a new MQTT subscriber writing to requestChan
func NewSubscriber(
	client mqtt.Client,
	config SubscriberConfig,
	requestChan chan *models.InferenceRequest,
) *Subscriber {
	return &Subscriber{
		client:       client,
		RequestChan:  requestChan,
		requestTopic: config.RequestTopic,
	}
}

// SubscribeAll subscribes to the configured request topic
func (s *Subscriber) SubscribeAll() error {
	if s.requestTopic == "" {
		return fmt.Errorf("no inference request topic configured")
	}
	token := s.client.Subscribe(s.requestTopic, 1, s.handleRequest)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to inference request topic: %w", token.Error())
	}
	log.Printf("Subscribed to inference request topic: %s", s.requestTopic)
	return nil
}

// Resubscribe restores the subscription after a reconnect
func (s *Subscriber) Resubscribe(client mqtt.Client) {
	if err := s.SubscribeAll(); err != nil {
		log.Printf("Error restoring MQTT subscription: %v", err)
	}
}

// handleRequest parses an inference request and writes it to the channel
func (s *Subscriber) handleRequest(client mqtt.Client, msg mqtt.Message) {
	req, err := parseInferenceRequest(msg.Topic(), msg.Payload())
	if err != nil {
		log.Printf("Error parsing inference request on %s: %v", msg.Topic(), err)
		return
	}

	log.Printf("Received inference request %s from %s: %d rows", req.RequestID, req.DeviceID, len(req.Features))

	// Write to channel (non-blocking with timeout)
	select {
	case s.RequestChan <- req:
	case <-time.After(1 * time.Second):
		log.Printf("Warning: Request channel full, dropping request from %s", req.DeviceID)
	}
}

// parseInferenceRequest decodes the JSON payload. The topic supplies the
// device ID when the payload does not, and the server clock supplies a
// missing timestamp.
func parseInferenceRequest(topic string, payload []byte) (*models.InferenceRequest, error) {
	var req models.InferenceRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inference request: %w", err)
	}
	if req.DeviceID == "" {
		req.DeviceID = extractDeviceID(topic)
	}
	if req.DeviceID == "" {
		return nil, fmt.Errorf("could not extract device ID from topic: %s", topic)
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	return &req, nil
}

// extractDeviceID extracts device ID from MQTT topic
// Example: "csi/esp32-001/infer" -> "esp32-001"
func extractDeviceID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}
