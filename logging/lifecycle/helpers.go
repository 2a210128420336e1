// Package lifecycle emits join/leave events for the structured log.
package lifecycle

import (
	"context"

	"armada/server/logging"
)

const (
	// EventPlayerJoined is emitted when a player claims a slot.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerLeft is emitted when a slot is released.
	EventPlayerLeft logging.EventType = "lifecycle.player_left"
	// EventHostChanged is emitted when host election picks a new host.
	EventHostChanged logging.EventType = "lifecycle.host_changed"
)

// PlayerJoinedPayload captures slot assignment metadata.
type PlayerJoinedPayload struct {
	Slot int32  `json:"slot"`
	Name string `json:"name"`
}

// PlayerLeftPayload captures why a slot was released.
type PlayerLeftPayload struct {
	Slot   int32  `json:"slot"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// HostChangedPayload names the outgoing and incoming host slots.
type HostChangedPayload struct {
	PreviousHost int32 `json:"previousHost"`
	NewHost      int32 `json:"newHost"`
}

// PlayerJoined publishes a slot-claimed event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload PlayerJoinedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerJoined,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// PlayerLeft publishes a slot-released event.
func PlayerLeft(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload PlayerLeftPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerLeft,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// HostChanged publishes a host re-election event.
func HostChanged(ctx context.Context, pub logging.Publisher, payload HostChangedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventHostChanged,
		Actor:    logging.ServerRef(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}
