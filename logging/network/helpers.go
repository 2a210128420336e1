// Package network emits transport-level events for the structured log.
package network

import (
	"context"

	"armada/server/logging"
)

const (
	EventConnectionAccepted logging.EventType = "network.connection_accepted"
	EventConnectionClosed   logging.EventType = "network.connection_closed"
	EventSendFailed         logging.EventType = "network.send_failed"
	EventUnknownEvent       logging.EventType = "network.unknown_event"
	EventDiscoveryProbe     logging.EventType = "network.discovery_probe"
)

type ConnectionPayload struct {
	Remote string `json:"remote"`
	Token  string `json:"token,omitempty"`
}

type SendFailedPayload struct {
	Remote string `json:"remote"`
	Event  string `json:"event"`
	Error  string `json:"error"`
}

type UnknownEventPayload struct {
	Type uint32 `json:"type"`
}

type DiscoveryProbePayload struct {
	Remote string `json:"remote"`
}

func ConnectionAccepted(ctx context.Context, pub logging.Publisher, payload ConnectionPayload) {
	publish(ctx, pub, EventConnectionAccepted, logging.SeverityDebug, payload)
}

func ConnectionClosed(ctx context.Context, pub logging.Publisher, payload ConnectionPayload) {
	publish(ctx, pub, EventConnectionClosed, logging.SeverityDebug, payload)
}

func SendFailed(ctx context.Context, pub logging.Publisher, payload SendFailedPayload) {
	publish(ctx, pub, EventSendFailed, logging.SeverityWarn, payload)
}

func UnknownEvent(ctx context.Context, pub logging.Publisher, payload UnknownEventPayload) {
	publish(ctx, pub, EventUnknownEvent, logging.SeverityWarn, payload)
}

func DiscoveryProbe(ctx context.Context, pub logging.Publisher, payload DiscoveryProbePayload) {
	publish(ctx, pub, EventDiscoveryProbe, logging.SeverityDebug, payload)
}

func publish(ctx context.Context, pub logging.Publisher, t logging.EventType, sev logging.Severity, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     t,
		Actor:    logging.ServerRef(),
		Severity: sev,
		Category: logging.CategoryTransport,
		Payload:  payload,
	})
}
