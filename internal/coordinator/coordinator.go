// Package coordinator owns collaboration sessions: their phase list, turn
// context, decision ledger, and the protocol that decides who may act next.
// All operations are synchronous in-memory state transitions. The coordinator
// does not serialize concurrent calls for the same session; the calling layer
// must process turn requests for one session one at a time. Independent
// sessions share no mutable state and may run fully in parallel.
package coordinator

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/quorumlabs/roundtable/internal/scheduler"
	"github.com/quorumlabs/roundtable/pkg/models"
)

// Hard errors. Everything else (denied turns, incomplete phases) is a
// structured result, not an error, so the protocol stays usable for polling.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrAgentNotInSession = errors.New("agent not in session")
)

// Notifier receives data-only JSON notifications (turn grants, decisions,
// phase advances). Delivery to agents is the messaging layer's job; the
// coordinator only produces the payloads.
type Notifier interface {
	PublishJSON(v any)
}

// Coordinator mediates turn requests and phase advancement for every session
// in its registry, delegating speaker selection to the priority scheduler.
type Coordinator struct {
	Registry  Registry
	Scheduler *scheduler.Scheduler
	// Hub is optional; when set, session events are published to it.
	Hub Notifier
	// WaitPerTurn is the per-turn estimate used for queue wait times.
	// Zero means the default.
	WaitPerTurn time.Duration

	now func() time.Time
}

// New returns a coordinator over the given registry and scheduler.
func New(reg Registry, sched *scheduler.Scheduler) *Coordinator {
	return &Coordinator{
		Registry:  reg,
		Scheduler: sched,
		now:       time.Now,
	}
}

func (c *Coordinator) waitPerTurn() time.Duration {
	if c.WaitPerTurn > 0 {
		return c.WaitPerTurn
	}
	return models.DefaultWaitPerTurn
}

func (c *Coordinator) publish(v any) {
	if c.Hub != nil {
		c.Hub.PublishJSON(v)
	}
}

// InitializeSession creates a session for the objective with the given
// role -> agent id mapping and ordered phase list. The owner of the first
// phase becomes the current speaker; every other participant is queued.
func (c *Coordinator) InitializeSession(objective, workspaceRef string, participants map[string]string, phaseList []models.Phase) (*models.Session, error) {
	if objective == "" {
		return nil, errors.New("objective required")
	}
	if len(participants) == 0 {
		return nil, errors.New("at least one participant required")
	}
	if len(phaseList) == 0 {
		return nil, errors.New("phase list required")
	}

	now := c.now()
	sess := &models.Session{
		SessionID:    "sess-" + randomID(),
		RoomID:       "room-" + randomID(),
		Objective:    objective,
		WorkspaceRef: workspaceRef,
		Phases:       phaseList,
		StartedAt:    now,
		Status:       statusForPhase(0),
		Turns: models.TurnContext{
			TurnTimeout: models.DefaultTurnTimeout,
		},
	}

	// Deterministic participant order: known roles first, then the rest
	// sorted by role name.
	for _, role := range orderedRoles(participants) {
		agentID := participants[role]
		sess.Participants = append(sess.Participants, &models.Participant{
			AgentID:      agentID,
			AgentType:    role,
			Role:         role,
			MeetingRole:  models.MeetingRoleParticipant,
			Status:       models.ParticipantActive,
			JoinedAt:     now,
			LastActiveAt: now,
		})
	}

	c.seedTurnContext(sess, now)
	c.Registry.Put(sess)

	c.publish(map[string]any{
		"type":       "session_started",
		"session_id": sess.SessionID,
		"room_id":    sess.RoomID,
		"objective":  sess.Objective,
		"phase":      sess.Phases[0].Name,
		"speaker":    sess.Turns.CurrentSpeaker,
		"timestamp":  now.UTC().Format(time.RFC3339Nano),
	})
	return sess, nil
}

// orderedRoles returns the map's roles with planner, implementer, tester
// first and any remaining roles sorted.
func orderedRoles(participants map[string]string) []string {
	known := []string{models.RolePlanner, models.RoleImplementer, models.RoleTester}
	var out []string
	seen := make(map[string]bool)
	for _, r := range known {
		if _, ok := participants[r]; ok {
			out = append(out, r)
			seen[r] = true
		}
	}
	var rest []string
	for r := range participants {
		if !seen[r] {
			rest = append(rest, r)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// phaseOwner picks the participant that owns the given phase: the first one
// whose role matches the phase owner. Phases owned by all roles (or with no
// matching role) go to whoever the scheduler scores highest, so blocked or
// starved participants get the floor first; ties fall back to participant
// order, keeping the pick deterministic.
func (c *Coordinator) phaseOwner(sess *models.Session, phase *models.Phase) *models.Participant {
	if phase.Owner != models.PhaseOwnerAll {
		for _, p := range sess.Participants {
			if p.Role == phase.Owner {
				return p
			}
		}
	}
	candidates := make([]string, len(sess.Participants))
	for i, p := range sess.Participants {
		candidates[i] = c.qualify(sess, p.AgentID)
	}
	if pick := c.Scheduler.NextSpeaker(candidates); pick != "" {
		if p := sess.Participant(strings.TrimPrefix(pick, sess.SessionID+"/")); p != nil {
			return p
		}
	}
	return sess.Participants[0]
}

// seedTurnContext resets the turn context for the current phase: the phase
// owner speaks, everyone else waits in stable order, and meeting roles are
// re-assigned in the scheduler.
func (c *Coordinator) seedTurnContext(sess *models.Session, now time.Time) {
	phase := sess.CurrentPhase()
	owner := c.phaseOwner(sess, phase)

	start := now
	sess.Turns.CurrentSpeaker = owner.AgentID
	sess.Turns.TurnStartedAt = &start
	sess.Turns.WaitQueue = nil
	for _, p := range sess.Participants {
		if p.AgentID == owner.AgentID {
			p.MeetingRole = models.MeetingRoleLeader
			p.Status = models.ParticipantSpeaking
		} else {
			p.MeetingRole = models.MeetingRoleParticipant
			p.Status = models.ParticipantWaiting
			sess.Turns.WaitQueue = append(sess.Turns.WaitQueue, p.AgentID)
		}
		c.Scheduler.SetPhaseRole(c.qualify(sess, p.AgentID), p.MeetingRole)
	}
	sess.PhaseSpans = append(sess.PhaseSpans, models.PhaseSpan{
		PhaseIndex: sess.PhaseIndex,
		Owner:      owner.AgentID,
		StartedAt:  now,
	})
}

// qualify prefixes an agent id with the session id so one scheduler can serve
// several sessions without metric bleed.
func (c *Coordinator) qualify(sess *models.Session, agentID string) string {
	return sess.SessionID + "/" + agentID
}

// UpdateWorkState records an agent's externally reported work state.
func (c *Coordinator) UpdateWorkState(sessionID, agentID, state string) error {
	sess, p, err := c.lookup(sessionID, agentID)
	if err != nil {
		return err
	}
	c.Scheduler.UpdateWorkState(c.qualify(sess, agentID), state)
	if state == models.WorkStateBlocked {
		p.Status = models.ParticipantBlocked
	} else if p.Status == models.ParticipantBlocked {
		// Unblocked: back to the floor if it still holds it, else waiting.
		if sess.Turns.CurrentSpeaker == agentID {
			p.Status = models.ParticipantSpeaking
		} else {
			p.Status = models.ParticipantWaiting
		}
	}
	return nil
}

func (c *Coordinator) getSession(sessionID string) (*models.Session, error) {
	sess, ok := c.Registry.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sess, nil
}

func (c *Coordinator) lookup(sessionID, agentID string) (*models.Session, *models.Participant, error) {
	sess, err := c.getSession(sessionID)
	if err != nil {
		return nil, nil, err
	}
	p := sess.Participant(agentID)
	if p == nil {
		return nil, nil, fmt.Errorf("%w: %s in %s", ErrAgentNotInSession, agentID, sessionID)
	}
	return sess, p, nil
}

// RequestTurn handles a speak, complete_turn, or escalate request from a
// participant. Contention outcomes come back as Granted:false with a tagged
// reason; only unknown session or agent ids are errors.
func (c *Coordinator) RequestTurn(sessionID, agentID, kind string) (models.TurnResult, error) {
	sess, p, err := c.lookup(sessionID, agentID)
	if err != nil {
		return models.TurnResult{}, err
	}

	switch sess.Status {
	case models.SessionCompleted:
		return deny(sess, models.DenySessionComplete, "session already completed"), nil
	case models.SessionFailed:
		return deny(sess, models.DenySessionFailed, "session failed"), nil
	}

	switch kind {
	case models.TurnKindSpeak:
		return c.handleSpeak(sess, p), nil
	case models.TurnKindComplete:
		return c.handleComplete(sess, p), nil
	case models.TurnKindEscalate:
		return c.handleEscalate(sess, p), nil
	default:
		return deny(sess, models.DenyInvalidKind, fmt.Sprintf("unknown turn request kind %q", kind)), nil
	}
}

func deny(sess *models.Session, code, reason string) models.TurnResult {
	return models.TurnResult{
		Granted:        false,
		CurrentSpeaker: sess.Turns.CurrentSpeaker,
		Code:           code,
		Reason:         reason,
	}
}

func (c *Coordinator) handleSpeak(sess *models.Session, p *models.Participant) models.TurnResult {
	cur := sess.Turns.CurrentSpeaker
	if cur == p.AgentID {
		// Already speaking; grant is idempotent.
		return models.TurnResult{Granted: true, CurrentSpeaker: cur}
	}

	if cur == "" {
		phase := sess.CurrentPhase()
		if phase.Owner != models.PhaseOwnerAll && p.Role != phase.Owner {
			return deny(sess, models.DenyRoleMismatch,
				fmt.Sprintf("role %s does not own phase %s (owner: %s)", p.Role, phase.Name, phase.Owner))
		}
		c.grantTurn(sess, p)
		return models.TurnResult{Granted: true, CurrentSpeaker: p.AgentID}
	}

	// Someone else is speaking: enqueue once and report the estimated wait.
	pos := enqueue(&sess.Turns, p.AgentID)
	p.Status = models.ParticipantWaiting
	res := deny(sess, models.DenySpeakerBusy,
		fmt.Sprintf("%s is speaking; queued at position %d", cur, pos))
	res.QueuePosition = pos
	res.WaitEstimate = time.Duration(pos) * c.waitPerTurn()
	return res
}

// enqueue adds the agent to the wait queue if absent and returns its
// 1-based position.
func enqueue(tc *models.TurnContext, agentID string) int {
	for i, id := range tc.WaitQueue {
		if id == agentID {
			return i + 1
		}
	}
	tc.WaitQueue = append(tc.WaitQueue, agentID)
	return len(tc.WaitQueue)
}

// removeFromQueue deletes the agent from the wait queue if present.
func removeFromQueue(tc *models.TurnContext, agentID string) {
	for i, id := range tc.WaitQueue {
		if id == agentID {
			tc.WaitQueue = append(tc.WaitQueue[:i], tc.WaitQueue[i+1:]...)
			return
		}
	}
}

func (c *Coordinator) grantTurn(sess *models.Session, p *models.Participant) {
	now := c.now()
	removeFromQueue(&sess.Turns, p.AgentID)
	sess.Turns.CurrentSpeaker = p.AgentID
	sess.Turns.TurnStartedAt = &now
	p.Status = models.ParticipantSpeaking
	p.LastActiveAt = now

	c.publish(map[string]any{
		"type":       "turn_granted",
		"session_id": sess.SessionID,
		"room_id":    sess.RoomID,
		"speaker":    p.AgentID,
		"phase":      sess.CurrentPhase().Name,
		"timestamp":  now.UTC().Format(time.RFC3339Nano),
	})
}

func (c *Coordinator) handleComplete(sess *models.Session, p *models.Participant) models.TurnResult {
	if sess.Turns.CurrentSpeaker != p.AgentID {
		return deny(sess, models.DenyNotSpeaker, "only the current speaker can complete the turn")
	}

	now := c.now()
	start := now
	if sess.Turns.TurnStartedAt != nil {
		start = *sess.Turns.TurnStartedAt
	}
	sess.Turns.History = append(sess.Turns.History, models.TurnRecord{
		AgentID:   p.AgentID,
		Role:      p.Role,
		StartedAt: start,
		EndedAt:   now,
		Action:    models.TurnKindSpeak,
		Outcome:   models.TurnOutcomeCompleted,
	})
	p.Status = models.ParticipantWaiting
	p.LastActiveAt = now
	c.Scheduler.RecordCommunicationActivity(c.qualify(sess, p.AgentID))

	// Promote the head of the queue, or clear the floor.
	next := ""
	if len(sess.Turns.WaitQueue) > 0 {
		next = sess.Turns.WaitQueue[0]
		sess.Turns.WaitQueue = sess.Turns.WaitQueue[1:]
		np := sess.Participant(next)
		np.Status = models.ParticipantSpeaking
		startNext := now
		sess.Turns.CurrentSpeaker = next
		sess.Turns.TurnStartedAt = &startNext
	} else {
		sess.Turns.CurrentSpeaker = ""
		sess.Turns.TurnStartedAt = nil
	}

	c.publish(map[string]any{
		"type":       "turn_completed",
		"session_id": sess.SessionID,
		"room_id":    sess.RoomID,
		"agent":      p.AgentID,
		"speaker":    next,
		"timestamp":  now.UTC().Format(time.RFC3339Nano),
	})
	return models.TurnResult{Granted: true, CurrentSpeaker: next}
}

func (c *Coordinator) handleEscalate(sess *models.Session, p *models.Participant) models.TurnResult {
	if p.Role != models.RolePlanner {
		return deny(sess, models.DenyNotPlanner, "only a planner can escalate")
	}
	cur := sess.Turns.CurrentSpeaker
	if cur == p.AgentID {
		return models.TurnResult{Granted: true, CurrentSpeaker: cur}
	}

	now := c.now()
	if cur != "" {
		// The interrupted speaker goes to the front of the queue; it is
		// not penalized for being interrupted.
		prev := sess.Participant(cur)
		prev.Status = models.ParticipantWaiting
		removeFromQueue(&sess.Turns, cur)
		sess.Turns.WaitQueue = append([]string{cur}, sess.Turns.WaitQueue...)
		sess.Turns.History = append(sess.Turns.History, models.TurnRecord{
			AgentID:   cur,
			Role:      prev.Role,
			StartedAt: turnStartOr(sess, now),
			EndedAt:   now,
			Action:    models.TurnKindSpeak,
			Outcome:   models.TurnOutcomeInterrupted,
		})
	}
	c.grantTurn(sess, p)

	c.publish(map[string]any{
		"type":        "escalation",
		"session_id":  sess.SessionID,
		"room_id":     sess.RoomID,
		"escalator":   p.AgentID,
		"interrupted": cur,
		"timestamp":   now.UTC().Format(time.RFC3339Nano),
	})
	return models.TurnResult{Granted: true, CurrentSpeaker: p.AgentID}
}

func turnStartOr(sess *models.Session, fallback time.Time) time.Time {
	if sess.Turns.TurnStartedAt != nil {
		return *sess.Turns.TurnStartedAt
	}
	return fallback
}

// RecordDecision appends a pending decision record. Beyond session existence
// there is no validation: decisions may reference outside actors.
func (c *Coordinator) RecordDecision(sessionID, maker, decision, reasoning, impact string, affected []string) (models.DecisionRecord, error) {
	sess, err := c.getSession(sessionID)
	if err != nil {
		return models.DecisionRecord{}, err
	}
	rec := models.DecisionRecord{
		DecisionID: "dec-" + randomID(),
		Timestamp:  c.now(),
		Maker:      maker,
		Decision:   decision,
		Reasoning:  reasoning,
		Impact:     impact,
		Affected:   affected,
		Status:     models.DecisionPending,
	}
	sess.Decisions = append(sess.Decisions, rec)

	c.publish(map[string]any{
		"type":        "decision_recorded",
		"session_id":  sess.SessionID,
		"room_id":     sess.RoomID,
		"decision_id": rec.DecisionID,
		"maker":       maker,
		"impact":      impact,
		"timestamp":   rec.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	return rec, nil
}

// RecordArtifact appends a file path to one of the session's artifact
// buckets (created, modified, tested, documented).
func (c *Coordinator) RecordArtifact(sessionID, bucket, path string) error {
	sess, err := c.getSession(sessionID)
	if err != nil {
		return err
	}
	switch bucket {
	case models.ArtifactCreated:
		sess.Artifacts.Created = append(sess.Artifacts.Created, path)
	case models.ArtifactModified:
		sess.Artifacts.Modified = append(sess.Artifacts.Modified, path)
	case models.ArtifactTested:
		sess.Artifacts.Tested = append(sess.Artifacts.Tested, path)
	case models.ArtifactDocumented:
		sess.Artifacts.Documented = append(sess.Artifacts.Documented, path)
	default:
		return fmt.Errorf("unknown artifact bucket %q", bucket)
	}
	return nil
}

// AdvancePhase validates completion of the current phase and moves the
// session to the next one, or to completed when the list is exhausted.
// Validation failures are a Success:false result, not an error. The phase
// index never decreases.
func (c *Coordinator) AdvancePhase(sessionID, initiatedBy string) (models.AdvanceResult, error) {
	sess, _, err := c.lookup(sessionID, initiatedBy)
	if err != nil {
		return models.AdvanceResult{}, err
	}

	switch sess.Status {
	case models.SessionCompleted:
		return models.AdvanceResult{
			Success: false,
			Code:    models.DenySessionComplete,
			Reasons: []string{"session already completed"},
		}, nil
	case models.SessionFailed:
		return models.AdvanceResult{
			Success: false,
			Code:    models.DenySessionFailed,
			Reasons: []string{"session failed"},
		}, nil
	}

	now := c.now()
	phase := sess.CurrentPhase()
	span := &sess.PhaseSpans[len(sess.PhaseSpans)-1]
	if phase.MaxDuration > 0 && now.Sub(span.StartedAt) > phase.MaxDuration {
		return models.AdvanceResult{
			Success: false,
			Code:    models.DenyPhaseOvertime,
			Reasons: []string{fmt.Sprintf("phase %s exceeded its %s budget", phase.Name, phase.MaxDuration)},
		}, nil
	}

	end := now
	span.EndedAt = &end
	sess.PhaseIndex++

	if sess.PhaseIndex >= len(sess.Phases) {
		sess.Status = models.SessionCompleted
		sess.EndedAt = &end
		sess.Turns.CurrentSpeaker = ""
		sess.Turns.TurnStartedAt = nil
		sess.Turns.WaitQueue = nil
		for _, p := range sess.Participants {
			p.Status = models.ParticipantCompleted
		}
		c.publish(map[string]any{
			"type":       "session_completed",
			"session_id": sess.SessionID,
			"room_id":    sess.RoomID,
			"timestamp":  now.UTC().Format(time.RFC3339Nano),
		})
		return models.AdvanceResult{Success: true, NewStatus: models.SessionCompleted}, nil
	}

	sess.Status = statusForPhase(sess.PhaseIndex)
	c.seedTurnContext(sess, now)
	next := sess.CurrentPhase()

	c.publish(map[string]any{
		"type":         "phase_advanced",
		"session_id":   sess.SessionID,
		"room_id":      sess.RoomID,
		"phase":        next.Name,
		"speaker":      sess.Turns.CurrentSpeaker,
		"deliverables": next.Deliverables,
		"initiated_by": initiatedBy,
		"timestamp":    now.UTC().Format(time.RFC3339Nano),
	})
	return models.AdvanceResult{
		Success:   true,
		NewPhase:  next.Name,
		NewStatus: sess.Status,
		Speaker:   sess.Turns.CurrentSpeaker,
	}, nil
}

// FailSession marks the session failed. Only the external orchestration layer
// calls this; nothing inside the coordinator triggers it.
func (c *Coordinator) FailSession(sessionID, reason string) error {
	sess, err := c.getSession(sessionID)
	if err != nil {
		return err
	}
	now := c.now()
	sess.Status = models.SessionFailed
	sess.EndedAt = &now
	sess.Turns.CurrentSpeaker = ""
	sess.Turns.TurnStartedAt = nil

	c.publish(map[string]any{
		"type":       "session_failed",
		"session_id": sess.SessionID,
		"room_id":    sess.RoomID,
		"reason":     reason,
		"timestamp":  now.UTC().Format(time.RFC3339Nano),
	})
	return nil
}

// GetSession returns the live session by id.
func (c *Coordinator) GetSession(sessionID string) (*models.Session, error) {
	return c.getSession(sessionID)
}

// statusForPhase maps a phase index onto the session status chain
// planning -> implementing -> testing -> reviewing. Lists longer than four
// phases stay in reviewing until completion.
func statusForPhase(index int) string {
	switch index {
	case 0:
		return models.SessionPlanning
	case 1:
		return models.SessionImplementing
	case 2:
		return models.SessionTesting
	default:
		return models.SessionReviewing
	}
}

func randomID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("t%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
