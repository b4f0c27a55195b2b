package service

import (
	"regexp"
	"strings"

	"github.com/diegoclair/slack-standup-bot/internal/domain"
)

// mentionPattern matches Slack mention tokens like <@U123ABC>.
var mentionPattern = regexp.MustCompile(`<@(.*?)>`)

// replaceMentions rewrites every mention token in text with the mentioned
// user's display name. Handles that do not resolve become the
// "User Not Available" placeholder; this never fails, whatever the input.
func (s *standupService) replaceMentions(text string) string {
	return mentionPattern.ReplaceAllStringFunc(text, func(token string) string {
		handle := strings.TrimSuffix(strings.TrimPrefix(token, "<@"), ">")

		user, err := s.dm.User().GetBySlackID(handle)
		if err != nil || user == nil {
			return domain.UserNotAvailable
		}

		return user.DisplayName
	})
}
