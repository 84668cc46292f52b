package models

import "time"

// Agent work states, externally reported.
const (
	WorkStateIdle    = "idle"
	WorkStateActive  = "active"
	WorkStateBlocked = "blocked"
)

// Agent roles within a session.
const (
	RolePlanner     = "planner"
	RoleImplementer = "implementer"
	RoleTester      = "tester"
)

// PhaseOwnerAll marks a phase owned by every role.
const PhaseOwnerAll = "all"

// Per-phase meeting roles.
const (
	MeetingRoleLeader      = "leader"
	MeetingRoleParticipant = "participant"
)

// Participant statuses.
const (
	ParticipantActive    = "active"
	ParticipantWaiting   = "waiting"
	ParticipantSpeaking  = "speaking"
	ParticipantCompleted = "completed"
	ParticipantBlocked   = "blocked"
)

// Session statuses.
const (
	SessionPlanning     = "planning"
	SessionImplementing = "implementing"
	SessionTesting      = "testing"
	SessionReviewing    = "reviewing"
	SessionCompleted    = "completed"
	SessionFailed       = "failed"
)

// Decision impact classes.
const (
	DecisionImpactPhase     = "phase"
	DecisionImpactObjective = "objective"
	DecisionImpactProcess   = "process"
)

// Decision statuses.
const (
	DecisionPending     = "pending"
	DecisionAccepted    = "accepted"
	DecisionDisputed    = "disputed"
	DecisionImplemented = "implemented"
)

// Turn request kinds.
const (
	TurnKindSpeak    = "speak"
	TurnKindComplete = "complete_turn"
	TurnKindEscalate = "escalate"
)

// Turn and advancement denial codes. Rendered to prose in the Reason field.
const (
	DenyRoleMismatch    = "role_mismatch"
	DenySpeakerBusy     = "speaker_busy"
	DenyNotSpeaker      = "not_speaker"
	DenyNotPlanner      = "not_planner"
	DenyInvalidKind     = "invalid_kind"
	DenySessionComplete = "session_complete"
	DenySessionFailed   = "session_failed"
	DenyPhaseOvertime   = "phase_overtime"
)

// Turn history outcomes.
const (
	TurnOutcomeCompleted   = "completed"
	TurnOutcomeInterrupted = "interrupted"
)

// Artifact buckets.
const (
	ArtifactCreated    = "created"
	ArtifactModified   = "modified"
	ArtifactTested     = "tested"
	ArtifactDocumented = "documented"
)

// Default limits and windows.
const (
	DefaultTurnTimeout      = 5 * time.Minute
	DefaultWaitPerTurn      = 2 * time.Minute
	DefaultStarvationWindow = 10 * time.Minute
	DefaultDecayWindow      = 2 * time.Minute
	DefaultSessionListLimit = 100
)
