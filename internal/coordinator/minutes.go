package coordinator

import (
	"fmt"
	"time"

	"github.com/quorumlabs/roundtable/pkg/models"
)

// GenerateMinutes builds the meeting minutes for a session: a pure read-side
// projection, safe to call at any point in the session's life.
func (c *Coordinator) GenerateMinutes(sessionID string) (models.MinutesReport, error) {
	sess, err := c.getSession(sessionID)
	if err != nil {
		return models.MinutesReport{}, err
	}

	now := c.now()
	end := now
	if sess.EndedAt != nil {
		end = *sess.EndedAt
	}
	elapsed := end.Sub(sess.StartedAt)

	report := models.MinutesReport{
		SessionID:   sess.SessionID,
		Objective:   sess.Objective,
		Status:      sess.Status,
		Duration:    elapsed,
		Decisions:   sess.Decisions,
		Artifacts:   sess.Artifacts,
		GeneratedAt: now,
		Summary: fmt.Sprintf("Objective: %s. Elapsed: %s. Status: %s.",
			sess.Objective, elapsed.Round(time.Second), sess.Status),
	}

	report.Phases = phaseReports(sess, now)
	report.Contributions = contributions(sess)
	report.Recommendations = recommendations(sess, report)
	return report, nil
}

func phaseReports(sess *models.Session, now time.Time) []models.PhaseReport {
	spans := make(map[int]models.PhaseSpan, len(sess.PhaseSpans))
	for _, sp := range sess.PhaseSpans {
		spans[sp.PhaseIndex] = sp
	}

	out := make([]models.PhaseReport, 0, len(sess.Phases))
	for i, phase := range sess.Phases {
		pr := models.PhaseReport{
			Name:      phase.Name,
			OwnerRole: phase.Owner,
			Outcome:   "pending",
		}
		if i < sess.PhaseIndex || sess.Status == models.SessionCompleted {
			pr.Outcome = "completed"
		}
		if sp, ok := spans[i]; ok {
			pr.Owner = sp.Owner
			end := now
			if sp.EndedAt != nil {
				end = *sp.EndedAt
			}
			pr.Duration = end.Sub(sp.StartedAt)
			pr.Overtime = phase.MaxDuration > 0 && pr.Duration > phase.MaxDuration
		}
		out = append(out, pr)
	}
	return out
}

func contributions(sess *models.Session) []models.Contribution {
	byAgent := make(map[string]*models.Contribution, len(sess.Participants))
	var out []models.Contribution
	for _, p := range sess.Participants {
		out = append(out, models.Contribution{AgentID: p.AgentID, Role: p.Role})
	}
	for i := range out {
		byAgent[out[i].AgentID] = &out[i]
	}
	for _, rec := range sess.Turns.History {
		c, ok := byAgent[rec.AgentID]
		if !ok {
			continue
		}
		c.Turns++
		if rec.Outcome == models.TurnOutcomeCompleted {
			c.CompletedTurns++
		}
		c.ActiveTime += rec.EndedAt.Sub(rec.StartedAt)
	}
	return out
}

// recommendations flags sessions a reviewer should look at more closely.
func recommendations(sess *models.Session, report models.MinutesReport) []string {
	var recs []string
	if len(sess.Decisions) == 0 {
		recs = append(recs, "No decisions were recorded; confirm outcomes were captured elsewhere.")
	}
	if sess.Artifacts.Empty() {
		recs = append(recs, "No artifacts were recorded for this session.")
	}
	for _, c := range report.Contributions {
		if c.Turns == 0 {
			recs = append(recs, fmt.Sprintf("Participant %s took no turns; check for starvation or disengagement.", c.AgentID))
		}
	}
	for _, pr := range report.Phases {
		if pr.Overtime {
			recs = append(recs, fmt.Sprintf("Phase %s ran over its time budget.", pr.Name))
		}
	}
	return recs
}
