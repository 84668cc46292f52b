package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/quorumlabs/roundtable/internal/archive"
	"github.com/quorumlabs/roundtable/pkg/models"
)

func TestOpen_skipIfNoDatabaseURL(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping postgres test")
	}
	st, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Second)
	sess := &models.Session{
		SessionID: "sess-pgtest",
		Objective: "postgres round-trip",
		Status:    models.SessionPlanning,
		Phases: []models.Phase{
			{Name: "Planning", Owner: models.RolePlanner, MaxDuration: 30 * time.Minute},
		},
		Participants: []*models.Participant{
			{AgentID: "p1", Role: models.RolePlanner, MeetingRole: models.MeetingRoleLeader,
				Status: models.ParticipantSpeaking, JoinedAt: started, LastActiveAt: started},
		},
		StartedAt: started,
	}
	if err := st.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	defer func() { _ = st.DeleteSession(ctx, "sess-pgtest") }()

	got, err := st.GetSession(ctx, "sess-pgtest")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Objective != "postgres round-trip" || len(got.Participants) != 1 {
		t.Fatalf("session: %+v", got)
	}

	sums, err := st.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sums) == 0 {
		t.Fatal("expected at least one archived session")
	}

	if err := st.DeleteSession(ctx, "sess-pgtest"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := st.GetSession(ctx, "sess-pgtest"); !errors.Is(err, archive.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
