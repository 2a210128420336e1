// Package match emits turn-loop and resolution events for the structured log.
package match

import (
	"context"

	"armada/server/logging"
)

const (
	EventMatchStarted     logging.EventType = "match.started"
	EventMatchStopped     logging.EventType = "match.stopped"
	EventTurnStarted      logging.EventType = "match.turn_started"
	EventActionResolved   logging.EventType = "match.action_resolved"
	EventActionRejected   logging.EventType = "match.action_rejected"
	EventThresholdCrossed logging.EventType = "match.threshold_crossed"
	EventGameOver         logging.EventType = "match.game_over"
)

type MatchStartedPayload struct {
	PlayerCount int   `json:"playerCount"`
	FirstPlayer int32 `json:"firstPlayer"`
}

type MatchStoppedPayload struct {
	Reason string `json:"reason"`
}

type TurnStartedPayload struct {
	CurrentPlayer int32 `json:"currentPlayer"`
	NextPlayer    int32 `json:"nextPlayer"`
	Income        int32 `json:"income"`
}

type ActionPayload struct {
	Action string `json:"action"`
	Target int32  `json:"target,omitempty"`
	Value  int32  `json:"value,omitempty"`
}

type ActionRejectedPayload struct {
	Action string `json:"action"`
	Code   int32  `json:"code"`
	Reason string `json:"reason"`
}

type ThresholdPayload struct {
	Stars     int32 `json:"stars"`
	Threshold int32 `json:"threshold"`
}

type GameOverPayload struct {
	Winner int32  `json:"winner"`
	Reason string `json:"reason"`
}

func Started(ctx context.Context, pub logging.Publisher, turn int32, payload MatchStartedPayload) {
	publish(ctx, pub, EventMatchStarted, turn, logging.ServerRef(), logging.SeverityInfo, payload)
}

func Stopped(ctx context.Context, pub logging.Publisher, turn int32, payload MatchStoppedPayload) {
	publish(ctx, pub, EventMatchStopped, turn, logging.ServerRef(), logging.SeverityWarn, payload)
}

func TurnStarted(ctx context.Context, pub logging.Publisher, turn int32, actor logging.EntityRef, payload TurnStartedPayload) {
	publish(ctx, pub, EventTurnStarted, turn, actor, logging.SeverityInfo, payload)
}

func ActionResolved(ctx context.Context, pub logging.Publisher, turn int32, actor logging.EntityRef, payload ActionPayload) {
	publish(ctx, pub, EventActionResolved, turn, actor, logging.SeverityInfo, payload)
}

func ActionRejected(ctx context.Context, pub logging.Publisher, turn int32, actor logging.EntityRef, payload ActionRejectedPayload) {
	publish(ctx, pub, EventActionRejected, turn, actor, logging.SeverityWarn, payload)
}

func ThresholdCrossed(ctx context.Context, pub logging.Publisher, turn int32, actor logging.EntityRef, payload ThresholdPayload) {
	publish(ctx, pub, EventThresholdCrossed, turn, actor, logging.SeverityInfo, payload)
}

func GameOver(ctx context.Context, pub logging.Publisher, turn int32, actor logging.EntityRef, payload GameOverPayload) {
	publish(ctx, pub, EventGameOver, turn, actor, logging.SeverityInfo, payload)
}

func publish(ctx context.Context, pub logging.Publisher, t logging.EventType, turn int32, actor logging.EntityRef, sev logging.Severity, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     t,
		Turn:     turn,
		Actor:    actor,
		Severity: sev,
		Category: logging.CategoryMatch,
		Payload:  payload,
	})
}
