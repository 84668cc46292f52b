// Package models provides shared types for the Roundtable coordinator and its
// consumers. These types mirror the JSON produced by notifications, the session
// archive, and the CLI, and are stable for external use.
package models

import "time"

// Phase is one ordered stage of a collaboration session. The phase list is
// fixed at session creation and never reordered.
type Phase struct {
	Name               string        `json:"name"`
	Description        string        `json:"description,omitempty"`
	Owner              string        `json:"owner"` // planner, implementer, tester, or all
	MaxDuration        time.Duration `json:"max_duration"`
	Deliverables       []string      `json:"deliverables,omitempty"`
	AcceptanceCriteria []string      `json:"acceptance_criteria,omitempty"`
}

// Participant is one agent's membership in a session. Created at session init,
// mutated throughout, never deleted (only status changes).
type Participant struct {
	AgentID      string    `json:"agent_id"`
	AgentType    string    `json:"agent_type,omitempty"`
	Role         string    `json:"role"` // planner, implementer, tester
	MeetingRole  string    `json:"meeting_role"`
	Status       string    `json:"status"`
	JoinedAt     time.Time `json:"joined_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// TurnRecord is one completed (or interrupted) turn in the session history.
// Entries are immutable once appended.
type TurnRecord struct {
	AgentID   string    `json:"agent_id"`
	Role      string    `json:"role"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Action    string    `json:"action"`
	Outcome   string    `json:"outcome"`
}

// TurnContext holds the speaking state for one session. An empty
// CurrentSpeaker means nobody holds the turn. The wait queue is FIFO with no
// duplicates and never contains the current speaker.
type TurnContext struct {
	CurrentSpeaker string        `json:"current_speaker,omitempty"`
	TurnStartedAt  *time.Time    `json:"turn_started_at,omitempty"`
	TurnTimeout    time.Duration `json:"turn_timeout"`
	WaitQueue      []string      `json:"wait_queue,omitempty"`
	History        []TurnRecord  `json:"history,omitempty"`
}

// DecisionRecord is an append-only audit entry for a choice made during the
// session.
type DecisionRecord struct {
	DecisionID string    `json:"decision_id"`
	Timestamp  time.Time `json:"timestamp"`
	Maker      string    `json:"maker"`
	Decision   string    `json:"decision"`
	Reasoning  string    `json:"reasoning,omitempty"`
	Impact     string    `json:"impact"` // phase, objective, process
	Affected   []string  `json:"affected,omitempty"`
	Status     string    `json:"status"`
}

// Artifacts collects file paths touched during a session, by kind of work.
type Artifacts struct {
	Created    []string `json:"created,omitempty"`
	Modified   []string `json:"modified,omitempty"`
	Tested     []string `json:"tested,omitempty"`
	Documented []string `json:"documented,omitempty"`
}

// Empty reports whether no artifacts were recorded at all.
func (a Artifacts) Empty() bool {
	return len(a.Created) == 0 && len(a.Modified) == 0 && len(a.Tested) == 0 && len(a.Documented) == 0
}

// PhaseSpan records when a phase was entered and left, and which participant
// owned it. Spans are appended as the session advances.
type PhaseSpan struct {
	PhaseIndex int        `json:"phase_index"`
	Owner      string     `json:"owner"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

// Session is one end-to-end collaboration instance: a fixed objective and
// phase list, a participant set, the live turn context, and the decision and
// artifact ledgers. Participants are kept in deterministic join order.
type Session struct {
	SessionID    string           `json:"session_id"`
	Objective    string           `json:"objective"`
	WorkspaceRef string           `json:"workspace_ref,omitempty"`
	RoomID       string           `json:"room_id,omitempty"`
	Participants []*Participant   `json:"participants"`
	PhaseIndex   int              `json:"phase_index"`
	Phases       []Phase          `json:"phases"`
	PhaseSpans   []PhaseSpan      `json:"phase_spans,omitempty"`
	Turns        TurnContext      `json:"turns"`
	Decisions    []DecisionRecord `json:"decisions,omitempty"`
	Artifacts    Artifacts        `json:"artifacts"`
	StartedAt    time.Time        `json:"started_at"`
	EndedAt      *time.Time       `json:"ended_at,omitempty"`
	Status       string           `json:"status"`
}

// Participant returns the participant with the given agent id, or nil.
func (s *Session) Participant(agentID string) *Participant {
	for _, p := range s.Participants {
		if p.AgentID == agentID {
			return p
		}
	}
	return nil
}

// CurrentPhase returns the phase at the current index, or nil once the
// session has advanced past the end of the list.
func (s *Session) CurrentPhase() *Phase {
	if s.PhaseIndex < 0 || s.PhaseIndex >= len(s.Phases) {
		return nil
	}
	return &s.Phases[s.PhaseIndex]
}

// TurnResult is the outcome of a turn request. Denials are expected contention
// outcomes, not errors: Granted is false and Code/Reason explain why.
type TurnResult struct {
	Granted        bool          `json:"granted"`
	CurrentSpeaker string        `json:"current_speaker,omitempty"`
	WaitEstimate   time.Duration `json:"wait_estimate,omitempty"`
	QueuePosition  int           `json:"queue_position,omitempty"`
	Code           string        `json:"code,omitempty"`
	Reason         string        `json:"reason,omitempty"`
}

// AdvanceResult is the outcome of a phase advancement attempt.
type AdvanceResult struct {
	Success   bool     `json:"success"`
	NewPhase  string   `json:"new_phase,omitempty"`
	NewStatus string   `json:"new_status,omitempty"`
	Speaker   string   `json:"speaker,omitempty"`
	Code      string   `json:"code,omitempty"`
	Reasons   []string `json:"reasons,omitempty"`
}

// PhaseReport is the per-phase section of a minutes report.
type PhaseReport struct {
	Name      string        `json:"name"`
	OwnerRole string        `json:"owner_role"`
	Owner     string        `json:"owner,omitempty"`
	Duration  time.Duration `json:"duration"`
	Outcome   string        `json:"outcome"` // completed or pending
	Overtime  bool          `json:"overtime,omitempty"`
}

// Contribution summarizes one participant's activity for the minutes.
type Contribution struct {
	AgentID        string        `json:"agent_id"`
	Role           string        `json:"role"`
	Turns          int           `json:"turns"`
	CompletedTurns int           `json:"completed_turns"`
	ActiveTime     time.Duration `json:"active_time"`
}

// MinutesReport is a read-side projection over a session: nothing in it is
// authoritative state.
type MinutesReport struct {
	SessionID       string           `json:"session_id"`
	Objective       string           `json:"objective"`
	Status          string           `json:"status"`
	Summary         string           `json:"summary"`
	Duration        time.Duration    `json:"duration"`
	Phases          []PhaseReport    `json:"phases"`
	Decisions       []DecisionRecord `json:"decisions,omitempty"`
	Artifacts       Artifacts        `json:"artifacts"`
	Contributions   []Contribution   `json:"contributions"`
	Recommendations []string         `json:"recommendations,omitempty"`
	GeneratedAt     time.Time        `json:"generated_at"`
}
