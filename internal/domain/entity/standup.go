package entity

import (
	"fmt"
	"time"

	"github.com/diegoclair/slack-standup-bot/internal/domain"
)

type StandupState string

const (
	StateIdle         StandupState = "idle"
	StateActive       StandupState = "active"
	StateAnswering    StandupState = "answering"
	StateDone         StandupState = "done"
	StateNotAvailable StandupState = "not_available"
	StateVacation     StandupState = "vacation"
)

type StandupEvent string

const (
	EventInit         StandupEvent = "init"
	EventStart        StandupEvent = "start"
	EventSkip         StandupEvent = "skip"
	EventFinish       StandupEvent = "finish"
	EventEdit         StandupEvent = "edit"
	EventNotAvailable StandupEvent = "not_available"
	EventVacation     StandupEvent = "vacation"
)

// transitions is the only mutation path for Standup.State. Each event is
// valid from exactly one source state.
var transitions = map[StandupEvent]struct{ from, to StandupState }{
	EventInit:         {StateIdle, StateActive},
	EventStart:        {StateActive, StateAnswering},
	EventSkip:         {StateActive, StateIdle},
	EventFinish:       {StateAnswering, StateDone},
	EventEdit:         {StateDone, StateAnswering},
	EventNotAvailable: {StateActive, StateNotAvailable},
	EventVacation:     {StateActive, StateVacation},
}

// Standup is one participant's daily order record in a channel. Records are
// unique per (channel, user, standup date); the three answers are filled
// strictly in order.
type Standup struct {
	ID               int64
	ChannelID        int64
	UserID           int64
	StandupDate      time.Time // calendar day; time of day is ignored
	State            StandupState
	Yesterday        string // answer to question 1; empty means unanswered
	Today            string // answer to question 2
	Conflicts        string // answer to question 3
	Order            int    // position in the channel's daily queue
	AutoSkippedTimes int
	Reason           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Fire applies event to the standup. If the record is not in the event's
// source state it returns domain.ErrInvalidTransition and changes nothing.
func (s *Standup) Fire(event StandupEvent) error {
	t, ok := transitions[event]
	if !ok || s.State != t.from {
		return fmt.Errorf("%w: cannot fire %q from state %q", domain.ErrInvalidTransition, event, s.State)
	}

	s.State = t.to
	return nil
}

func (s *Standup) Completed() bool {
	return s.State == StateDone || s.State == StateVacation || s.State == StateNotAvailable
}

func (s *Standup) InProgress() bool {
	return s.State == StateActive || s.State == StateAnswering
}

// NextQuestionNumber returns the number (1-3) of the first unanswered
// question, or 0 when all three are answered.
func (s *Standup) NextQuestionNumber() int {
	switch {
	case s.Yesterday == "":
		return 1
	case s.Today == "":
		return 2
	case s.Conflicts == "":
		return 3
	default:
		return 0
	}
}

// CurrentQuestion returns the prompt for the first unanswered question, or
// an empty string when there is nothing left to ask.
func (s *Standup) CurrentQuestion() string {
	return domain.QuestionForNumber(s.NextQuestionNumber())
}

// SetNextAnswer stores text in the first unanswered slot and reports whether
// a slot was filled. When all three answers are present it is a no-op.
func (s *Standup) SetNextAnswer(text string) bool {
	switch s.NextQuestionNumber() {
	case 1:
		s.Yesterday = text
	case 2:
		s.Today = text
	case 3:
		s.Conflicts = text
	default:
		return false
	}
	return true
}

// ClearAnswer empties the answer for the given question number. It does not
// touch the record's state.
func (s *Standup) ClearAnswer(number int) {
	switch number {
	case 1:
		s.Yesterday = ""
	case 2:
		s.Today = ""
	case 3:
		s.Conflicts = ""
	}
}

func (s *Standup) AllAnswered() bool {
	return s.NextQuestionNumber() == 0
}

// StatusLine describes where the participant is in today's flow, mentioning
// them by slack id.
func (s *Standup) StatusLine(slackUserID string) string {
	mention := fmt.Sprintf("<@%s>", slackUserID)

	switch s.State {
	case StateIdle:
		return fmt.Sprintf("%s is in the queue waiting to do their curry order.", mention)
	case StateActive:
		return fmt.Sprintf("%s needs to answer if they want to order curry.", mention)
	case StateAnswering:
		switch s.NextQuestionNumber() {
		case 1:
			return fmt.Sprintf("%s is answering which curry they want.", mention)
		case 2:
			return fmt.Sprintf("%s is answering which rice they want.", mention)
		default:
			return fmt.Sprintf("%s is answering which naan they want.", mention)
		}
	case StateVacation:
		return fmt.Sprintf("%s is on vacation.", mention)
	case StateNotAvailable:
		return fmt.Sprintf("%s is not available.", mention)
	default:
		return fmt.Sprintf("%s already did their order.", mention)
	}
}
