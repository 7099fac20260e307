package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"wifi-pose-backend/internal/models"
)

// Publisher publishes inference results read from a channel
type Publisher struct {
	client mqtt.Client

	// Input channel (read by publisher, written by the prediction service)
	ResultChan chan *models.InferenceResponse

	// Topic pattern
	resultTopic string // e.g., "pose/{device_id}/result"
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	ResultTopic string // e.g., "pose/{device_id}/result"
}

// NewPublisher creates a new MQTT publisher reading from resultChan
func NewPublisher(
	client mqtt.Client,
	config PublisherConfig,
	resultChan chan *models.InferenceResponse,
) *Publisher {
	return &Publisher{
		client:      client,
		ResultChan:  resultChan,
		resultTopic: config.ResultTopic,
	}
}

// Start begins publishing results from the channel
// Runs until context is cancelled or channel is closed
func (p *Publisher) Start(ctx context.Context) {
	log.Println("MQTT Publisher: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("MQTT Publisher: Context cancelled, shutting down...")
			return

		case resp, ok := <-p.ResultChan:
			if !ok {
				log.Println("MQTT Publisher: Result channel closed, shutting down...")
				return
			}

			if err := p.publishResult(resp); err != nil {
				log.Printf("Error publishing inference result: %v", err)
			}
		}
	}
}

func (p *Publisher) publishResult(resp *models.InferenceResponse) error {
	topic, payload, err := encodeResult(p.resultTopic, resp)
	if err != nil {
		return err
	}

	token := p.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish inference result: %w", token.Error())
	}

	log.Printf("Published inference result %s for device %s to topic: %s", resp.RequestID, resp.DeviceID, topic)
	return nil
}

func encodeResult(topicPattern string, resp *models.InferenceResponse) (string, []byte, error) {
	if resp.DeviceID == "" {
		return "", nil, fmt.Errorf("inference result %s has no device ID", resp.RequestID)
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal inference result: %w", err)
	}
	return formatTopic(topicPattern, resp.DeviceID), payload, nil
}

// formatTopic replaces {device_id} placeholder with actual device ID
func formatTopic(topicPattern, deviceID string) string {
	return strings.ReplaceAll(topicPattern, "{device_id}", deviceID)
}
