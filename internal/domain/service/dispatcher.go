package service

import (
	"context"
	"strings"

	"github.com/diegoclair/slack-standup-bot/internal/domain"
	"github.com/diegoclair/slack-standup-bot/internal/domain/entity"
)

// dispatcher routes inbound channel messages. Recognized command forms build
// the matching Command; free text while the issuer is answering becomes an
// answer; everything else is conversational noise and is dropped.
type dispatcher struct {
	svc *standupService
}

func newDispatcher(svc *standupService) *dispatcher {
	return &dispatcher{svc: svc}
}

func (d *dispatcher) Dispatch(ctx context.Context, slackChannelID, slackUserID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	channel, err := d.svc.dm.Channel().GetBySlackID(slackChannelID)
	if err != nil {
		return err
	}
	if channel == nil || !channel.IsActive {
		return nil
	}

	issuer, err := d.svc.dm.User().GetByChannelAndSlackID(channel.ID, slackUserID)
	if err != nil {
		return err
	}
	if issuer == nil || issuer.IsBot {
		return nil
	}

	lower := strings.ToLower(text)
	if lower == "report" {
		return d.svc.SendTodayReport(ctx, channel)
	}

	// The record the message acts on belongs to the issuer, except for
	// vacation, which acts on the mentioned participant.
	subject := issuer
	if strings.HasPrefix(lower, "vacation") {
		subject, err = d.resolveTarget(channel, text)
		if err != nil {
			return err
		}
		if subject == nil {
			return nil
		}
	}

	// The lock must be held before the record is loaded: validation reads
	// the snapshot that execution then mutates, and a load taken outside
	// the lock can be stale by the time the command runs.
	unlock := d.svc.locks.acquire(recordKey(channel.ID, subject.ID, today()))
	defer unlock()

	standup, err := d.svc.CreateIfNeeded(ctx, subject, channel.ID)
	if err != nil {
		return err
	}
	if standup == nil {
		return nil
	}

	var cmd Command
	switch {
	case strings.HasPrefix(lower, "delete answer"):
		cmd = d.svc.newDeleteCommand(issuer, standup, text)

	case lower == "skip" || lower == "postpone":
		cmd = d.svc.newPostponeCommand(issuer, standup)

	case strings.HasPrefix(lower, "vacation"):
		cmd = d.svc.newVacationCommand(issuer, subject, standup)
	}

	if cmd == nil {
		return d.handleAnswer(ctx, channel, issuer, standup, text)
	}

	if err := cmd.Validate(ctx); err != nil {
		if ice, ok := domain.AsInvalidCommand(err); ok {
			return d.svc.postMessage(channel.SlackChannelID, ice.Message)
		}
		return err
	}

	notification, err := cmd.Execute(ctx)
	if err != nil {
		return err
	}

	if notification != "" {
		if err := d.svc.postMessage(channel.SlackChannelID, notification); err != nil {
			return err
		}
	}

	return d.advance(ctx, channel)
}

// resolveTarget finds the participant mentioned in a compound command.
// Unresolvable targets yield (nil, nil): the message is treated as noise.
func (d *dispatcher) resolveTarget(channel *entity.Channel, text string) (*entity.User, error) {
	match := mentionPattern.FindStringSubmatch(text)
	if match == nil {
		return nil, nil
	}

	user, err := d.svc.dm.User().GetByChannelAndSlackID(channel.ID, match[1])
	if err != nil {
		return nil, err
	}

	return user, nil
}

// handleAnswer feeds free text into the issuer's record. A reply while the
// record is active starts the answering flow; a reply on a reopened done
// record (an answer was deleted) resumes it through the edit transition.
func (d *dispatcher) handleAnswer(ctx context.Context, channel *entity.Channel, issuer *entity.User, standup *entity.Standup, text string) error {
	switch standup.State {
	case entity.StateActive:
		if err := standup.Fire(entity.EventStart); err != nil {
			return err
		}
	case entity.StateAnswering:
	case entity.StateDone:
		if standup.AllAnswered() {
			return nil
		}
		if err := standup.Fire(entity.EventEdit); err != nil {
			return err
		}
	default:
		// idle, vacation, not_available: not this user's turn
		return nil
	}

	notification, err := d.svc.ProcessAnswer(ctx, issuer, standup, text)
	if err != nil {
		return err
	}

	if notification != "" {
		if err := d.svc.postMessage(channel.SlackChannelID, notification); err != nil {
			return err
		}
	}

	return d.advance(ctx, channel)
}

// advance moves the daily queue forward after a record changed, and closes
// the day with the report once everyone has completed.
func (d *dispatcher) advance(ctx context.Context, channel *entity.Channel) error {
	question, err := d.svc.ActivateNext(ctx, channel.ID, today())
	if err != nil {
		return err
	}
	if question != "" {
		return d.svc.postMessage(channel.SlackChannelID, question)
	}

	done, err := d.svc.AllCompleted(ctx, channel.ID, today())
	if err != nil {
		return err
	}
	if done {
		return d.svc.SendTodayReport(ctx, channel)
	}

	return nil
}
