// Package scheduler computes per-agent speaking priority and picks the next
// legitimate speaker among a candidate set. It owns a mapping of per-agent
// work state, phase role, and communication metrics, updated through explicit
// operations; it holds no session state, so one scheduler can serve several
// sessions as long as agent ids are session-qualified by the caller.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/quorumlabs/roundtable/pkg/models"
)

// Score bands. Blocked must always beat active, active must always beat idle;
// the leadership bonus must not lift a lower band into the one above it.
const (
	blockedScore = 8.0
	activeScore  = 5.0
	idleScore    = 2.0

	leaderBonus     = 1.5
	starvationBoost = 4.0
	recentPenalty   = 1.0
)

// ReasonCode tags one component of a priority score.
type ReasonCode string

const (
	ReasonBlockedState  ReasonCode = "blocked_state"
	ReasonActiveState   ReasonCode = "active_state"
	ReasonIdleState     ReasonCode = "idle_state"
	ReasonPhaseLeader   ReasonCode = "phase_leader"
	ReasonStarvation    ReasonCode = "starvation_protection"
	ReasonRecentSpeaker ReasonCode = "recent_speaker_penalty"
)

// Reason is one scored component with an optional detail.
type Reason struct {
	Code   ReasonCode
	Detail string
}

func (r Reason) String() string {
	var s string
	switch r.Code {
	case ReasonBlockedState:
		s = "Blocked state"
	case ReasonActiveState:
		s = "Active state"
	case ReasonIdleState:
		s = "Idle state"
	case ReasonPhaseLeader:
		s = "Phase leader"
	case ReasonStarvation:
		s = "Starvation protection"
	case ReasonRecentSpeaker:
		s = "Recent speaker penalty"
	default:
		s = string(r.Code)
	}
	if r.Detail != "" {
		s += " (" + r.Detail + ")"
	}
	return s
}

type agentState struct {
	workState    string
	phaseRole    string
	messagesSent int
	lastComm     time.Time // zero means never communicated
}

// Scheduler scores agents and selects speakers. Safe for concurrent use.
type Scheduler struct {
	// StarvationWindow is how long an agent may go without communicating
	// before it gets the anti-starvation boost. Zero means the default.
	StarvationWindow time.Duration
	// DecayWindow is how recently an agent must have communicated to take
	// the recent-speaker penalty. Zero means the default.
	DecayWindow time.Duration

	mu     sync.Mutex
	agents map[string]*agentState
	now    func() time.Time
}

// New returns a Scheduler with default windows.
func New() *Scheduler {
	return &Scheduler{
		agents: make(map[string]*agentState),
		now:    time.Now,
	}
}

// get returns the tracked state for agentID, creating an idle default entry.
// Caller must hold s.mu.
func (s *Scheduler) get(agentID string) *agentState {
	st, ok := s.agents[agentID]
	if !ok {
		st = &agentState{workState: models.WorkStateIdle, phaseRole: models.MeetingRoleParticipant}
		s.agents[agentID] = st
	}
	return st
}

// UpdateWorkState records the agent's externally reported work state.
func (s *Scheduler) UpdateWorkState(agentID, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(agentID).workState = state
}

// SetPhaseRole records the agent's meeting role for the current phase.
func (s *Scheduler) SetPhaseRole(agentID, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(agentID).phaseRole = role
}

// RecordCommunicationActivity bumps the agent's message count and stamps its
// last communication time. Metrics never decrease.
func (s *Scheduler) RecordCommunicationActivity(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.get(agentID)
	st.messagesSent++
	st.lastComm = s.now()
}

// CommunicationMetrics returns the message count and last-activity time for
// the agent. The zero time means it has never communicated.
func (s *Scheduler) CommunicationMetrics(agentID string) (sent int, last time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.agents[agentID]
	if !ok {
		return 0, time.Time{}
	}
	return st.messagesSent, st.lastComm
}

// Forget drops all tracked state for the agent. Called when a session that
// qualified the id is discarded.
func (s *Scheduler) Forget(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.agents, agentID)
}

// Priority computes the agent's additive priority score with the tagged
// reasons for each component. Unknown agents score as idle never-communicated.
func (s *Scheduler) Priority(agentID string) (float64, []Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.priorityLocked(agentID)
}

func (s *Scheduler) priorityLocked(agentID string) (float64, []Reason) {
	st := s.get(agentID)
	now := s.now()

	var score float64
	var reasons []Reason

	switch st.workState {
	case models.WorkStateBlocked:
		score += blockedScore
		reasons = append(reasons, Reason{Code: ReasonBlockedState})
	case models.WorkStateActive:
		score += activeScore
		reasons = append(reasons, Reason{Code: ReasonActiveState})
	default:
		score += idleScore
		reasons = append(reasons, Reason{Code: ReasonIdleState})
	}

	if st.phaseRole == models.MeetingRoleLeader {
		score += leaderBonus
		reasons = append(reasons, Reason{Code: ReasonPhaseLeader})
	}

	starvation := s.StarvationWindow
	if starvation <= 0 {
		starvation = models.DefaultStarvationWindow
	}
	decay := s.DecayWindow
	if decay <= 0 {
		decay = models.DefaultDecayWindow
	}

	silent := st.lastComm.IsZero() || now.Sub(st.lastComm) > starvation
	if silent {
		score += starvationBoost
		reasons = append(reasons, Reason{
			Code:   ReasonStarvation,
			Detail: fmt.Sprintf("no communication for over %s", starvation),
		})
	} else if now.Sub(st.lastComm) < decay {
		score -= recentPenalty
		reasons = append(reasons, Reason{Code: ReasonRecentSpeaker})
	}

	return score, reasons
}

// NextSpeaker scores every candidate and returns the strict maximum. Ties are
// broken by first-seen order in the candidate list, so repeated calls with
// unchanged inputs return the same agent. Empty input returns "".
func (s *Scheduler) NextSpeaker(candidates []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	best := ""
	bestScore := 0.0
	for _, id := range candidates {
		score, _ := s.priorityLocked(id)
		if best == "" || score > bestScore {
			best = id
			bestScore = score
		}
	}
	return best
}
