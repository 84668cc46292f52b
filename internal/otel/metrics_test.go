package otel

import (
	"context"
	"testing"
	"time"
)

func TestInitMetrics_RecordAll(t *testing.T) {
	ctx := context.Background()
	if _, err := InitMeterProvider(ctx, "metrics-test"); err != nil {
		t.Fatalf("InitMeterProvider: %v", err)
	}
	if err := InitMetrics(ctx); err != nil {
		t.Fatalf("InitMetrics: %v", err)
	}
	RecordTurnRequest(ctx, "speak", "granted")
	RecordTurnRequest(ctx, "complete_turn", "not_speaker")
	RecordEscalation(ctx, "p1")
	RecordPhaseAdvance(ctx, "Planning", "advanced")
	RecordDecision(ctx, "process")
	RecordTurnDuration(ctx, "p1", 150*time.Millisecond)
	RecordRoomEvent(ctx)
}

func TestRoomSubscriberGauge(t *testing.T) {
	AddRoomSubscriber()
	AddRoomSubscriber()
	RemoveRoomSubscriber()
	RemoveRoomSubscriber()
	RemoveRoomSubscriber() // should not go negative
}
