package archive

import (
	"context"
	"time"

	"github.com/quorumlabs/roundtable/pkg/models"
)

// Archive persists session snapshots so finished collaborations survive the
// process. The coordinator never touches it; the orchestration layer (here,
// the CLI) snapshots sessions at the points it cares about.
// Implementations: the SQLite store in this package and *postgres.Store.
type Archive interface {
	// SaveSession stores a full snapshot of the session, replacing any
	// previous snapshot with the same id.
	SaveSession(ctx context.Context, sess *models.Session) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	ListSessions(ctx context.Context, limit int) ([]SessionSummary, error)
	ListDecisions(ctx context.Context, sessionID string) ([]models.DecisionRecord, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Close() error
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	SessionID    string     `json:"session_id"`
	Objective    string     `json:"objective"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Participants int        `json:"participants"`
	Decisions    int        `json:"decisions"`
	Turns        int        `json:"turns"`
}
