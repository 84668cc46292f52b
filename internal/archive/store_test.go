package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quorumlabs/roundtable/pkg/models"
)

func testSession(id string, started time.Time) *models.Session {
	ended := started.Add(45 * time.Minute)
	return &models.Session{
		SessionID: id,
		Objective: "archive round-trip",
		RoomID:    "room-1",
		Status:    models.SessionCompleted,
		Phases: []models.Phase{
			{Name: "Planning", Owner: models.RolePlanner, MaxDuration: 30 * time.Minute},
		},
		PhaseIndex: 1,
		Participants: []*models.Participant{
			{AgentID: "p1", Role: models.RolePlanner, MeetingRole: models.MeetingRoleLeader,
				Status: models.ParticipantCompleted, JoinedAt: started, LastActiveAt: ended},
			{AgentID: "p2", Role: models.RoleImplementer, MeetingRole: models.MeetingRoleParticipant,
				Status: models.ParticipantCompleted, JoinedAt: started, LastActiveAt: ended},
		},
		Decisions: []models.DecisionRecord{
			{DecisionID: "dec-1", Timestamp: started.Add(time.Minute), Maker: "p1",
				Decision: "keep it", Impact: models.DecisionImpactProcess,
				Affected: []string{"p2"}, Status: models.DecisionPending},
		},
		Turns: models.TurnContext{
			History: []models.TurnRecord{
				{AgentID: "p1", Role: models.RolePlanner, StartedAt: started,
					EndedAt: started.Add(2 * time.Minute), Action: models.TurnKindSpeak,
					Outcome: models.TurnOutcomeCompleted},
			},
		},
		StartedAt: started,
		EndedAt:   &ended,
	}
}

func openTestArchive(t *testing.T) Archive {
	t.Helper()
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSaveSession_roundTrip(t *testing.T) {
	t.Parallel()
	st := openTestArchive(t)
	ctx := context.Background()
	started := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	if err := st.SaveSession(ctx, testSession("sess-1", started)); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := st.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Objective != "archive round-trip" || got.Status != models.SessionCompleted {
		t.Fatalf("session: %+v", got)
	}
	if len(got.Participants) != 2 || len(got.Decisions) != 1 || len(got.Turns.History) != 1 {
		t.Fatalf("snapshot shape: participants=%d decisions=%d turns=%d",
			len(got.Participants), len(got.Decisions), len(got.Turns.History))
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(started.Add(45*time.Minute)) {
		t.Fatalf("ended at: %v", got.EndedAt)
	}
}

func TestSaveSession_upsert(t *testing.T) {
	t.Parallel()
	st := openTestArchive(t)
	ctx := context.Background()
	started := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	sess := testSession("sess-1", started)
	sess.Status = models.SessionPlanning
	sess.EndedAt = nil
	if err := st.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	sess.Status = models.SessionCompleted
	if err := st.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession (update): %v", err)
	}

	sums, err := st.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sums) != 1 {
		t.Fatalf("expected one row after upsert, got %d", len(sums))
	}
	if sums[0].Status != models.SessionCompleted {
		t.Fatalf("status: %s", sums[0].Status)
	}
}

func TestListSessions_countsAndOrder(t *testing.T) {
	t.Parallel()
	st := openTestArchive(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	if err := st.SaveSession(ctx, testSession("sess-old", base)); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := st.SaveSession(ctx, testSession("sess-new", base.Add(time.Hour))); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	sums, err := st.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sums) != 2 || sums[0].SessionID != "sess-new" {
		t.Fatalf("order: %+v", sums)
	}
	if sums[0].Participants != 2 || sums[0].Decisions != 1 || sums[0].Turns != 1 {
		t.Fatalf("counts: %+v", sums[0])
	}
}

func TestListDecisions(t *testing.T) {
	t.Parallel()
	st := openTestArchive(t)
	ctx := context.Background()
	if err := st.SaveSession(ctx, testSession("sess-1", time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	recs, err := st.ListDecisions(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(recs) != 1 || recs[0].DecisionID != "dec-1" {
		t.Fatalf("decisions: %+v", recs)
	}
	if len(recs[0].Affected) != 1 || recs[0].Affected[0] != "p2" {
		t.Fatalf("affected: %v", recs[0].Affected)
	}
}

func TestGetSession_notFound(t *testing.T) {
	t.Parallel()
	st := openTestArchive(t)
	if _, err := st.GetSession(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()
	st := openTestArchive(t)
	ctx := context.Background()
	if err := st.SaveSession(ctx, testSession("sess-1", time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := st.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := st.GetSession(ctx, "sess-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if recs, err := st.ListDecisions(ctx, "sess-1"); err != nil || len(recs) != 0 {
		t.Fatalf("expected cascade delete of decisions, got %v %v", recs, err)
	}
	if err := st.DeleteSession(ctx, "sess-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for second delete, got %v", err)
	}
}
