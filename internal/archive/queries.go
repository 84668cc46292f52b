package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quorumlabs/roundtable/pkg/models"
)

// ErrNotFound is returned when no snapshot exists for a session id.
var ErrNotFound = errors.New("session not archived")

// SaveSession replaces any previous snapshot of the session in one
// transaction: the full JSON payload plus queryable participant, decision,
// and turn rows.
func (s *sqliteStore) SaveSession(ctx context.Context, sess *models.Session) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("session with id required")
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var ended *int64
	if sess.EndedAt != nil {
		v := sess.EndedAt.Unix()
		ended = &v
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions(session_id, objective, workspace_ref, room_id, status, phase_index, started_at, ended_at, payload)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
  objective=excluded.objective, workspace_ref=excluded.workspace_ref,
  room_id=excluded.room_id, status=excluded.status,
  phase_index=excluded.phase_index, started_at=excluded.started_at,
  ended_at=excluded.ended_at, payload=excluded.payload`,
		sess.SessionID, sess.Objective, sess.WorkspaceRef, sess.RoomID, sess.Status,
		sess.PhaseIndex, sess.StartedAt.Unix(), ended, string(payload)); err != nil {
		return err
	}

	// Child rows are rewritten wholesale; snapshots are small.
	for _, table := range []string{"participants", "decisions", "turns"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE session_id = ?`, sess.SessionID); err != nil {
			return err
		}
	}
	for _, p := range sess.Participants {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO participants(session_id, agent_id, role, meeting_role, status, joined_at, last_active_at)
VALUES(?, ?, ?, ?, ?, ?, ?)`,
			sess.SessionID, p.AgentID, p.Role, p.MeetingRole, p.Status, p.JoinedAt.Unix(), p.LastActiveAt.Unix()); err != nil {
			return err
		}
	}
	for _, d := range sess.Decisions {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO decisions(decision_id, session_id, maker, decision, reasoning, impact, affected, status, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.DecisionID, sess.SessionID, d.Maker, d.Decision, d.Reasoning, d.Impact,
			strings.Join(d.Affected, ","), d.Status, d.Timestamp.Unix()); err != nil {
			return err
		}
	}
	for _, rec := range sess.Turns.History {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO turns(session_id, agent_id, role, started_at, ended_at, action, outcome)
VALUES(?, ?, ?, ?, ?, ?, ?)`,
			sess.SessionID, rec.AgentID, rec.Role, rec.StartedAt.UnixNano(), rec.EndedAt.UnixNano(), rec.Action, rec.Outcome); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetSession rehydrates the snapshot from its JSON payload.
func (s *sqliteStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var payload string
	err := s.DB.QueryRowContext(ctx, `SELECT payload FROM sessions WHERE session_id = ?`, sessionID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return nil, err
	}
	var sess models.Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &sess, nil
}

func (s *sqliteStore) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = models.DefaultSessionListLimit
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT
  se.session_id, se.objective, se.status, se.started_at, se.ended_at,
  (SELECT COUNT(*) FROM participants p WHERE p.session_id = se.session_id) AS participants,
  (SELECT COUNT(*) FROM decisions d WHERE d.session_id = se.session_id) AS decisions,
  (SELECT COUNT(*) FROM turns t WHERE t.session_id = se.session_id) AS turns
FROM sessions se
ORDER BY se.started_at DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []SessionSummary
	for rows.Next() {
		var (
			sum     SessionSummary
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(&sum.SessionID, &sum.Objective, &sum.Status, &started, &ended,
			&sum.Participants, &sum.Decisions, &sum.Turns); err != nil {
			return nil, err
		}
		sum.StartedAt = time.Unix(started, 0).UTC()
		if ended.Valid {
			t := time.Unix(ended.Int64, 0).UTC()
			sum.EndedAt = &t
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ListDecisions(ctx context.Context, sessionID string) ([]models.DecisionRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT decision_id, maker, decision, reasoning, impact, affected, status, created_at
FROM decisions WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.DecisionRecord
	for rows.Next() {
		var (
			rec      models.DecisionRecord
			affected string
			created  int64
		)
		if err := rows.Scan(&rec.DecisionID, &rec.Maker, &rec.Decision, &rec.Reasoning,
			&rec.Impact, &affected, &rec.Status, &created); err != nil {
			return nil, err
		}
		if affected != "" {
			rec.Affected = strings.Split(affected, ",")
		}
		rec.Timestamp = time.Unix(created, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *sqliteStore) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return nil
}
