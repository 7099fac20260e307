package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"
)

// Client manages the MQTT connection (low-level connection management only)
// For subscribing and publishing, use Subscriber and Publisher respectively
type Client struct {
	client mqtt.Client
	config ClientConfig

	// Run again after every reconnect, paho drops subscriptions with a clean session
	onConnect []func(mqtt.Client)
	mu        sync.Mutex
}

// ClientConfig holds MQTT client configuration
type ClientConfig struct {
	Broker         string
	ClientID       string // empty generates wifi-pose-<random>
	Username       string
	Password       string
	StatusTopic    string // retained online/offline status, empty disables it
	ConnectTimeout time.Duration
}

// StatusMessage is the retained payload on the status topic
type StatusMessage struct {
	ClientID  string    `json:"client_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// NewClient connects to the broker, failing after ConnectTimeout (default 10s)
func NewClient(config ClientConfig) (*Client, error) {
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	config.ClientID = clientIdentifier(config.ClientID)

	c := &Client{config: config}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetDefaultPublishHandler(messagePubHandler)
	opts.SetOnConnectHandler(c.handleConnect)
	opts.SetConnectionLostHandler(connectLostHandler)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(config.ConnectTimeout)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	if config.StatusTopic != "" {
		will, err := statusPayload(config.ClientID, statusOffline, time.Now())
		if err != nil {
			return nil, err
		}
		opts.SetBinaryWill(config.StatusTopic, will, 1, true)
	}

	c.client = mqtt.NewClient(opts)

	token := c.client.Connect()
	if !token.WaitTimeout(config.ConnectTimeout) {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: timed out", config.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	log.Printf("MQTT Client: Connected to broker %s as %s", config.Broker, config.ClientID)

	if err := c.publishStatus(statusOnline); err != nil {
		log.Printf("MQTT Client: Warning - %v", err)
	}

	return c, nil
}

// GetNativeClient returns the underlying paho MQTT client
// This is used by Subscriber and Publisher
func (c *Client) GetNativeClient() mqtt.Client {
	return c.client
}

// OnConnect registers fn and runs it on every (re)connect after now.
// Subscribers use it to restore their subscriptions.
func (c *Client) OnConnect(fn func(mqtt.Client)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = append(c.onConnect, fn)
}

// Close marks the service offline and closes the connection
func (c *Client) Close() {
	if err := c.publishStatus(statusOffline); err != nil {
		log.Printf("MQTT Client: Warning - %v", err)
	}
	c.client.Disconnect(250)
	log.Println("MQTT Client: Disconnected")
}

func (c *Client) handleConnect(client mqtt.Client) {
	log.Println("MQTT: Connection established")

	c.mu.Lock()
	handlers := append([]func(mqtt.Client){}, c.onConnect...)
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(client)
	}
}

func (c *Client) publishStatus(status string) error {
	if c.config.StatusTopic == "" {
		return nil
	}
	payload, err := statusPayload(c.config.ClientID, status, time.Now())
	if err != nil {
		return err
	}
	token := c.client.Publish(c.config.StatusTopic, 1, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("failed to publish %s status: timed out", status)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish %s status: %w", status, err)
	}
	return nil
}

func statusPayload(clientID, status string, now time.Time) ([]byte, error) {
	payload, err := json.Marshal(StatusMessage{
		ClientID:  clientID,
		Status:    status,
		Timestamp: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status: %w", err)
	}
	return payload, nil
}

func clientIdentifier(configured string) string {
	if configured != "" {
		return configured
	}
	return "wifi-pose-" + uuid.New().String()[:8]
}

var messagePubHandler mqtt.MessageHandler = func(client mqtt.Client, msg mqtt.Message) {
	log.Printf("MQTT: Unhandled message on topic: %s", msg.Topic())
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Printf("MQTT: Connection lost: %v", err)
}
