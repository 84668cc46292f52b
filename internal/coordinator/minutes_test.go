package coordinator

import (
	"strings"
	"testing"
	"time"

	"github.com/quorumlabs/roundtable/pkg/models"
)

func TestGenerateMinutes_completedSession(t *testing.T) {
	t.Parallel()
	c, sess, at := newTestCoordinator(t)

	// One full turn in Planning, then a decision, an artifact, and a run to
	// completion.
	*at = at.Add(2 * time.Minute)
	if _, err := c.RequestTurn(sess.SessionID, "p1", models.TurnKindComplete); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := c.RecordDecision(sess.SessionID, "p1", "split the importer", "too large for one phase", models.DecisionImpactPhase, nil); err != nil {
		t.Fatalf("decision: %v", err)
	}
	if err := c.RecordArtifact(sess.SessionID, models.ArtifactCreated, "internal/importer/importer.go"); err != nil {
		t.Fatalf("artifact: %v", err)
	}
	for i := 0; i < 4; i++ {
		*at = at.Add(5 * time.Minute)
		if res, err := c.AdvancePhase(sess.SessionID, "p1"); err != nil || !res.Success {
			t.Fatalf("advance %d: %v %+v", i, err, res)
		}
	}

	minutes, err := c.GenerateMinutes(sess.SessionID)
	if err != nil {
		t.Fatalf("GenerateMinutes: %v", err)
	}
	if minutes.Status != models.SessionCompleted {
		t.Fatalf("status: %s", minutes.Status)
	}
	if !strings.Contains(minutes.Summary, sess.Objective) || !strings.Contains(minutes.Summary, models.SessionCompleted) {
		t.Fatalf("summary: %q", minutes.Summary)
	}
	if len(minutes.Phases) != 4 {
		t.Fatalf("phases: %d", len(minutes.Phases))
	}
	for _, pr := range minutes.Phases {
		if pr.Outcome != "completed" {
			t.Fatalf("phase %s outcome: %s", pr.Name, pr.Outcome)
		}
	}
	if len(minutes.Decisions) != 1 {
		t.Fatalf("decisions: %d", len(minutes.Decisions))
	}
	if minutes.Artifacts.Empty() {
		t.Fatal("artifacts should be present")
	}
}

func TestGenerateMinutes_contributions(t *testing.T) {
	t.Parallel()
	c, sess, at := newTestCoordinator(t)
	*at = at.Add(2 * time.Minute)
	if _, err := c.RequestTurn(sess.SessionID, "p1", models.TurnKindComplete); err != nil {
		t.Fatalf("complete p1: %v", err)
	}
	*at = at.Add(4 * time.Minute)
	if _, err := c.RequestTurn(sess.SessionID, "p2", models.TurnKindComplete); err != nil {
		t.Fatalf("complete p2: %v", err)
	}

	minutes, err := c.GenerateMinutes(sess.SessionID)
	if err != nil {
		t.Fatalf("GenerateMinutes: %v", err)
	}
	byAgent := make(map[string]models.Contribution)
	for _, contrib := range minutes.Contributions {
		byAgent[contrib.AgentID] = contrib
	}
	if got := byAgent["p1"]; got.Turns != 1 || got.CompletedTurns != 1 || got.ActiveTime != 2*time.Minute {
		t.Fatalf("p1 contribution: %+v", got)
	}
	if got := byAgent["p2"]; got.ActiveTime != 4*time.Minute {
		t.Fatalf("p2 contribution: %+v", got)
	}
	if got := byAgent["p3"]; got.Turns != 0 {
		t.Fatalf("p3 contribution: %+v", got)
	}
}

func TestGenerateMinutes_recommendations(t *testing.T) {
	t.Parallel()
	c, sess, _ := newTestCoordinator(t)

	minutes, err := c.GenerateMinutes(sess.SessionID)
	if err != nil {
		t.Fatalf("GenerateMinutes: %v", err)
	}
	var sawDecisions, sawArtifacts, sawIdle bool
	for _, rec := range minutes.Recommendations {
		switch {
		case strings.Contains(rec, "decisions"):
			sawDecisions = true
		case strings.Contains(rec, "artifacts"):
			sawArtifacts = true
		case strings.Contains(rec, "no turns"):
			sawIdle = true
		}
	}
	if !sawDecisions || !sawArtifacts || !sawIdle {
		t.Fatalf("expected empty-session flags, got %v", minutes.Recommendations)
	}
}
