package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/diegoclair/slack-standup-bot/internal/domain"
	"github.com/diegoclair/slack-standup-bot/internal/domain/entity"
)

// Command is one validated, side-effecting action triggered by an inbound
// message.
type Command interface {
	// Validate checks the command's preconditions without mutating
	// anything. Business-rule violations come back as
	// *domain.InvalidCommandError; Execute must not run unless Validate
	// passed.
	Validate(ctx context.Context) error

	// Execute performs the effect and returns the outbound notification.
	Execute(ctx context.Context) (string, error)
}

type commandKind string

const (
	cmdDelete   commandKind = "delete"
	cmdPostpone commandKind = "postpone"
	cmdVacation commandKind = "vacation"
)

// command is the single concrete shape behind Command. The variants form a
// closed set and differ only in their validator chain and effect. Validators
// run most specific first and the first failure aborts the chain; the shared
// base validation and bookkeeping are no-ops, so they are implicit.
type command struct {
	kind       commandKind
	validators []func(ctx context.Context) error
	effect     func(ctx context.Context) (string, error)
}

func (c *command) Validate(ctx context.Context) error {
	for _, validate := range c.validators {
		if err := validate(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (c *command) Execute(ctx context.Context) (string, error) {
	return c.effect(ctx)
}

// newDeleteCommand acts on the issuer's own record: it clears the answer
// whose number closes the message text. Deleting is only forbidden before
// the issuer's turn has started.
func (s *standupService) newDeleteCommand(issuer *entity.User, standup *entity.Standup, text string) Command {
	return &command{
		kind: cmdDelete,
		validators: []func(ctx context.Context) error{
			func(ctx context.Context) error {
				if standup.State == entity.StateIdle || standup.State == entity.StateActive {
					return domain.NewInvalidCommand(fmt.Sprintf("<@%s> You can not delete an answer before your order.", issuer.SlackUserID))
				}
				return nil
			},
		},
		effect: func(ctx context.Context) (string, error) {
			if err := s.DeleteAnswer(ctx, standup, trailingDigit(text)); err != nil {
				return "", err
			}
			return "Answer deleted", nil
		},
	}
}

// newPostponeCommand sends the issuer's active record to the back of the
// daily queue, provided someone else is still waiting.
func (s *standupService) newPostponeCommand(issuer *entity.User, standup *entity.Standup) Command {
	return &command{
		kind: cmdPostpone,
		validators: []func(ctx context.Context) error{
			func(ctx context.Context) error {
				if standup.State != entity.StateActive {
					return domain.NewInvalidCommand("You can only skip the order when asked.")
				}
				return nil
			},
			func(ctx context.Context) error {
				pending, err := s.dm.Standup().PendingForDay(standup.ChannelID, standup.StandupDate)
				if err != nil {
					return fmt.Errorf("failed to list pending standups: %w", err)
				}
				if len(pending) == 0 {
					return domain.NewInvalidCommand("You cannot skip your order because you are the last one in the stack.")
				}
				return nil
			},
		},
		effect: func(ctx context.Context) (string, error) {
			if err := s.Postpone(ctx, standup); err != nil {
				return "", err
			}
			return fmt.Sprintf("<@%s> has been moved to the back of the queue.", issuer.SlackUserID), nil
		},
	}
}

// newVacationCommand acts on another participant's record; only admins may
// use it, and only while the target's record is active.
func (s *standupService) newVacationCommand(issuer, target *entity.User, standup *entity.Standup) Command {
	return &command{
		kind: cmdVacation,
		validators: []func(ctx context.Context) error{
			func(ctx context.Context) error {
				if !issuer.IsAdmin {
					return domain.NewInvalidCommand("You don't have permission to vacation a user.")
				}
				return nil
			},
			func(ctx context.Context) error {
				if standup.State == entity.StateIdle {
					return domain.NewInvalidCommand(fmt.Sprintf("You need to wait until <@%s> turns.", target.SlackUserID))
				}
				return nil
			},
			func(ctx context.Context) error {
				if standup.Completed() {
					return domain.NewInvalidCommand(fmt.Sprintf("<@%s> has already completed their order for today.", target.SlackUserID))
				}
				return nil
			},
			func(ctx context.Context) error {
				if standup.State == entity.StateAnswering {
					return domain.NewInvalidCommand(fmt.Sprintf("<@%s> is doing his/her order.", target.SlackUserID))
				}
				return nil
			},
		},
		effect: func(ctx context.Context) (string, error) {
			if err := s.Vacation(ctx, standup); err != nil {
				return "", err
			}
			return fmt.Sprintf("<@%s> has been put on vacation.", target.SlackUserID), nil
		},
	}
}

// trailingDigit returns the digit that ends text, or 0 when there is none.
func trailingDigit(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	last := text[len(text)-1]
	if last < '0' || last > '9' {
		return 0
	}

	return int(last - '0')
}
