package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

var (
	initMetricsOnce      sync.Once
	turnRequestsCounter  metric.Int64Counter
	escalationsCounter   metric.Int64Counter
	phaseAdvancesCounter metric.Int64Counter
	decisionsCounter     metric.Int64Counter
	turnDuration         metric.Float64Histogram
	roomEventsCounter    metric.Int64Counter
	roomSubscribersGauge metric.Int64ObservableGauge
	roomSubscribers      int64
	roomSubscribersMu    sync.Mutex
)

// InitMetrics creates the meter instruments. Safe to call multiple times; only
// runs once. Call after InitMeterProvider.
func InitMetrics(ctx context.Context) error {
	var err error
	initMetricsOnce.Do(func() {
		m := Meter()
		turnRequestsCounter, err = m.Int64Counter("roundtable_turn_requests_total", metric.WithDescription("Total turn requests by kind and outcome"))
		if err != nil {
			return
		}
		escalationsCounter, err = m.Int64Counter("roundtable_escalations_total", metric.WithDescription("Total granted escalations"))
		if err != nil {
			return
		}
		phaseAdvancesCounter, err = m.Int64Counter("roundtable_phase_advances_total", metric.WithDescription("Total phase advancement attempts by outcome"))
		if err != nil {
			return
		}
		decisionsCounter, err = m.Int64Counter("roundtable_decisions_total", metric.WithDescription("Total decisions recorded"))
		if err != nil {
			return
		}
		turnDuration, err = m.Float64Histogram("roundtable_turn_duration_seconds", metric.WithDescription("Completed turn duration in seconds"))
		if err != nil {
			return
		}
		roomEventsCounter, err = m.Int64Counter("roundtable_room_events_total", metric.WithDescription("Total room events published"))
		if err != nil {
			return
		}
		roomSubscribersGauge, err = m.Int64ObservableGauge("roundtable_room_subscribers", metric.WithDescription("Current room subscriber count"))
		if err != nil {
			return
		}
		_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			roomSubscribersMu.Lock()
			n := roomSubscribers
			roomSubscribersMu.Unlock()
			o.ObserveInt64(roomSubscribersGauge, n)
			return nil
		}, roomSubscribersGauge)
		if err != nil {
			return
		}
	})
	return err
}

// RecordTurnRequest records one turn request and its outcome (granted or a
// denial code).
func RecordTurnRequest(ctx context.Context, kind, outcome string) {
	if turnRequestsCounter == nil {
		return
	}
	turnRequestsCounter.Add(ctx, 1, metric.WithAttributes(
		AttrKind.String(kind),
		AttrOutcome.String(outcome),
	))
}

// RecordEscalation records one granted escalation.
func RecordEscalation(ctx context.Context, agent string) {
	if escalationsCounter == nil {
		return
	}
	escalationsCounter.Add(ctx, 1, metric.WithAttributes(AttrAgent.String(agent)))
}

// RecordPhaseAdvance records one advancement attempt and its outcome.
func RecordPhaseAdvance(ctx context.Context, phase, outcome string) {
	if phaseAdvancesCounter == nil {
		return
	}
	phaseAdvancesCounter.Add(ctx, 1, metric.WithAttributes(
		AttrPhase.String(phase),
		AttrOutcome.String(outcome),
	))
}

// RecordDecision records one decision being added to a session's ledger.
func RecordDecision(ctx context.Context, impact string) {
	if decisionsCounter == nil {
		return
	}
	decisionsCounter.Add(ctx, 1, metric.WithAttributes(AttrKind.String(impact)))
}

// RecordTurnDuration records how long a completed turn held the floor.
func RecordTurnDuration(ctx context.Context, agent string, d time.Duration) {
	if turnDuration == nil {
		return
	}
	turnDuration.Record(ctx, d.Seconds(), metric.WithAttributes(AttrAgent.String(agent)))
}

// RecordRoomEvent records one room event published.
func RecordRoomEvent(ctx context.Context) {
	if roomEventsCounter == nil {
		return
	}
	roomEventsCounter.Add(ctx, 1)
}

// AddRoomSubscriber adds 1 to the subscriber gauge (call on subscribe).
func AddRoomSubscriber() {
	roomSubscribersMu.Lock()
	roomSubscribers++
	roomSubscribersMu.Unlock()
}

// RemoveRoomSubscriber subtracts 1 from the subscriber gauge (call on
// unsubscribe).
func RemoveRoomSubscriber() {
	roomSubscribersMu.Lock()
	roomSubscribers--
	if roomSubscribers < 0 {
		roomSubscribers = 0
	}
	roomSubscribersMu.Unlock()
}
