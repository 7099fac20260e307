package aggregator

import (
	"log"
	"sort"
	"sync"
	"time"
)

// DeviceState holds the request history of one sensor device
type DeviceState struct {
	DeviceID    string    `json:"device_id"`
	Requests    int       `json:"requests"`
	Rejected    int       `json:"rejected"`
	LastRequest time.Time `json:"last_request"`
}

// DeviceTracker keeps per-device state for MQTT inference requests and
// rate limits devices that ask too often
type DeviceTracker struct {
	devices     map[string]*DeviceState
	minInterval time.Duration
	mu          sync.Mutex
}

// NewDeviceTracker creates a tracker; a zero minInterval disables rate limiting
func NewDeviceTracker(minInterval time.Duration) *DeviceTracker {
	return &DeviceTracker{
		devices:     make(map[string]*DeviceState),
		minInterval: minInterval,
	}
}

// Allow records a request from deviceID at now and reports whether it may
// be served. Rejected requests do not move the device's last request time.
func (dt *DeviceTracker) Allow(deviceID string, now time.Time) bool {
	dt.mu.Lock()
	defer dt.mu.Unlock()

	device, exists := dt.devices[deviceID]
	if !exists {
		device = &DeviceState{DeviceID: deviceID}
		dt.devices[deviceID] = device
	}

	if exists && dt.minInterval > 0 && now.Sub(device.LastRequest) < dt.minInterval {
		device.Rejected++
		log.Printf("Rate limiting inference for %s (last request was %.1fs ago)",
			deviceID, now.Sub(device.LastRequest).Seconds())
		return false
	}

	device.Requests++
	device.LastRequest = now
	return true
}

// GetDeviceState returns a copy of the state of a device
func (dt *DeviceTracker) GetDeviceState(deviceID string) (DeviceState, bool) {
	dt.mu.Lock()
	defer dt.mu.Unlock()

	device, ok := dt.devices[deviceID]
	if !ok {
		return DeviceState{}, false
	}
	return *device, true
}

// GetAllDevices returns all device IDs in sorted order
func (dt *DeviceTracker) GetAllDevices() []string {
	dt.mu.Lock()
	defer dt.mu.Unlock()

	devices := make([]string, 0, len(dt.devices))
	for deviceID := range dt.devices {
		devices = append(devices, deviceID)
	}
	sort.Strings(devices)
	return devices
}
