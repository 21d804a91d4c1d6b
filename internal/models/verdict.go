package models

import (
	"time"

	"github.com/google/uuid"
)

type Severity uint8

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// RemedialAction is a closed set of responses a detector can demand.
// Every consumer must match all variants exhaustively.
type RemedialAction interface {
	remedial()
	Name() string
}

// WarnAction notifies the subject without punishing.
type WarnAction struct {
	Notice string
}

// MuteAction assigns the muted role, removed again after Duration (0 = indefinite).
type MuteAction struct {
	Duration time.Duration
}

type KickAction struct{}

type BanAction struct {
	DeleteMessageDays int
}

// TimeoutAction uses the platform's communication-disabled facility.
type TimeoutAction struct {
	Until time.Time
}

func (WarnAction) remedial()    {}
func (MuteAction) remedial()    {}
func (KickAction) remedial()    {}
func (BanAction) remedial()     {}
func (TimeoutAction) remedial() {}

func (WarnAction) Name() string    { return "warn" }
func (MuteAction) Name() string    { return "mute" }
func (KickAction) Name() string    { return "kick" }
func (BanAction) Name() string     { return "ban" }
func (TimeoutAction) Name() string { return "timeout" }

// Verdict is a detector's conclusion about one qualifying event. It is
// produced at most once per event and consumed exactly once by the executor.
type Verdict struct {
	ID       string
	GuildID  string
	UserID   string
	Detector string
	Reason   string
	Action   RemedialAction
	Severity Severity
	IssuedAt time.Time
	DetectUS int64

	// ChannelID, when set, is where a WarnAction is delivered; otherwise
	// the warning goes to the subject directly.
	ChannelID string

	// DeleteMessageID, when set, is a message the executor removes before
	// applying the action.
	DeleteMessageID string

	// StripRoles makes the executor zero the permissions of every
	// non-base role the subject holds before the main action runs.
	StripRoles bool

	// DamageCheck makes the executor measure the guild's surviving
	// structure afterwards and report it for possible restoration.
	DamageCheck bool
}

func NewVerdict(guildID, userID, detector, reason string, action RemedialAction, severity Severity) *Verdict {
	return &Verdict{
		ID:       uuid.NewString(),
		GuildID:  guildID,
		UserID:   userID,
		Detector: detector,
		Reason:   reason,
		Action:   action,
		Severity: severity,
		IssuedAt: time.Now(),
	}
}
