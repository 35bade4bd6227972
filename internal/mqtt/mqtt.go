// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/posture-sensor/internal/logic"
)

// Topic is the MQTT topic for posture events.
const Topic = "home/posture/sensor/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/posture/sensor/system"

// TopicDiagnostics is the MQTT topic for per-tick diagnostics.
const TopicDiagnostics = "home/posture/sensor/diagnostics"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a posture event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// PublishDiagnostics sends one tick's diagnostics. Best effort.
	PublishDiagnostics(ts time.Time, d logic.Diagnostics) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// OutboxStatus reports the offline outbox.
type OutboxStatus interface {
	Buffered() int
	Dropped() int
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Posture PosturePayload `json:"posture"`
}

// PosturePayload contains the posture event details.
type PosturePayload struct {
	Timestamp    string  `json:"timestamp"`
	Event        string  `json:"event"`
	State        string  `json:"state"`
	SeatedTicks  int     `json:"seated_ticks"`
	TemperatureC float64 `json:"temperature_c"`
}

// FormatPayload creates the JSON payload for a posture event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Posture: PosturePayload{
			Timestamp:    event.Timestamp.UTC().Format(time.RFC3339),
			Event:        string(event.Type),
			State:        string(event.State),
			SeatedTicks:  event.SeatedTicks,
			TemperatureC: event.Temperature,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// DiagnosticsPayload is the per-tick diagnostics message.
type DiagnosticsPayload struct {
	Diagnostics DiagnosticsInner `json:"diagnostics"`
}

// DiagnosticsInner mirrors logic.Diagnostics.
type DiagnosticsInner struct {
	Timestamp      string  `json:"timestamp"`
	SeatedTicks    int     `json:"seated_ticks"`
	StandingTicks  int     `json:"standing_ticks"`
	NotifyTicks    int     `json:"notify_ticks"`
	LookbackStandC float64 `json:"lookback_stand_c"`
	LookbackSitC   float64 `json:"lookback_sit_c"`
	LatestC        float64 `json:"latest_c"`
}

// FormatDiagnosticsPayload creates the JSON payload for a diagnostics sample.
func FormatDiagnosticsPayload(ts time.Time, d logic.Diagnostics) ([]byte, error) {
	return json.Marshal(DiagnosticsPayload{
		Diagnostics: DiagnosticsInner{
			Timestamp:      ts.UTC().Format(time.RFC3339),
			SeatedTicks:    d.SeatedTicks,
			StandingTicks:  d.StandingTicks,
			NotifyTicks:    d.NotifyTicks,
			LookbackStandC: d.LookbackStand,
			LookbackSitC:   d.LookbackSit,
			LatestC:        d.Latest,
		},
	})
}
