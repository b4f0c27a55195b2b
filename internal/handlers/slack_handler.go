package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	slackcmd "github.com/diegoclair/slack-standup-bot/internal/domain/slack"
	"github.com/diegoclair/slack-standup-bot/internal/domain/service"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

type SlackHandler struct {
	services      *service.Instance
	signingSecret string
}

func New(services *service.Instance, signingSecret string) *SlackHandler {
	return &SlackHandler{
		services:      services,
		signingSecret: signingSecret,
	}
}

// verifyRequest checks the Slack signature and returns the request body.
func (h *SlackHandler) verifyRequest(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return nil, false
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	verifier, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return nil, false
	}

	if _, err := verifier.Write(body); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return nil, false
	}

	if err := verifier.Ensure(); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return nil, false
	}

	return body, true
}

// HandleEvents receives Slack Events API callbacks. Channel messages feed
// the dispatcher; everything else is acknowledged and dropped.
func (h *SlackHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	body, ok := h.verifyRequest(w, r)
	if !ok {
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, challenge.Challenge)

	case slackevents.CallbackEvent:
		if ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent); ok {
			h.handleMessageEvent(ev)
		}
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (h *SlackHandler) handleMessageEvent(ev *slackevents.MessageEvent) {
	// Ignore bot messages and message edits/deletions
	if ev.BotID != "" || ev.SubType != "" {
		return
	}

	// Slack expects a fast ack; the dispatch runs in the background
	go func() {
		ctx := context.Background()
		if err := h.services.Dispatcher.Dispatch(ctx, ev.Channel, ev.User, ev.Text); err != nil {
			log.Printf("Failed to dispatch message from %s in %s: %v", ev.User, ev.Channel, err)
		}
	}()
}

func (h *SlackHandler) HandleSlashCommand(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.verifyRequest(w, r); !ok {
		return
	}

	s, err := slack.SlashCommandParse(r)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	cmd, err := slackcmd.ParseCommand(s.Text)
	if err != nil {
		h.respondWithError(w, err.Error())
		return
	}

	response := h.handleCommand(cmd, &s)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *SlackHandler) handleCommand(cmd *slackcmd.Command, slashCmd *slack.SlashCommand) *slack.Msg {
	switch cmd.Type {
	case slackcmd.CmdAdd:
		return h.handleAddUser(cmd, slashCmd)
	case slackcmd.CmdRemove:
		return h.handleRemoveUser(cmd, slashCmd)
	case slackcmd.CmdList:
		return h.handleListUsers(slashCmd)
	case slackcmd.CmdAway:
		return h.handleAway(cmd, slashCmd)
	case slackcmd.CmdConfig:
		return h.handleConfig(cmd, slashCmd)
	case slackcmd.CmdPause:
		return h.handlePause(slashCmd)
	case slackcmd.CmdResume:
		return h.handleResume(slashCmd)
	case slackcmd.CmdReport:
		return h.handleReport(slashCmd)
	case slackcmd.CmdHelp:
		return h.handleHelp()
	default:
		return h.createErrorResponse("Unknown command")
	}
}

// mentionToUserID extracts the user id from a mention argument like <@U123>.
func mentionToUserID(arg string) string {
	userID := strings.TrimSpace(arg)
	userID = strings.TrimPrefix(userID, "<@")
	userID = strings.TrimSuffix(userID, ">")
	return userID
}

func (h *SlackHandler) handleAddUser(cmd *slackcmd.Command, slashCmd *slack.SlashCommand) *slack.Msg {
	if len(cmd.Args) == 0 {
		return h.createErrorResponse("Please mention the user: `/standup add @user`")
	}

	userID := mentionToUserID(cmd.Args[0])

	channel, _, err := h.services.Standup.SetupChannel(slashCmd.ChannelID, slashCmd.ChannelName, slashCmd.TeamID)
	if err != nil {
		return h.createErrorResponse("Failed to set up channel")
	}

	if err := h.services.Standup.AddUser(channel.ID, userID); err != nil {
		return h.createErrorResponse(fmt.Sprintf("Failed to add user: %v", err))
	}

	return &slack.Msg{
		ResponseType: slack.ResponseTypeInChannel,
		Text:         fmt.Sprintf("✅ <@%s> was added to the daily order!", userID),
	}
}

func (h *SlackHandler) handleRemoveUser(cmd *slackcmd.Command, slashCmd *slack.SlashCommand) *slack.Msg {
	if len(cmd.Args) == 0 {
		return h.createErrorResponse("Please mention the user: `/standup remove @user`")
	}

	userID := mentionToUserID(cmd.Args[0])

	channel, _, err := h.services.Standup.SetupChannel(slashCmd.ChannelID, slashCmd.ChannelName, slashCmd.TeamID)
	if err != nil {
		return h.createErrorResponse("Failed to set up channel")
	}

	if err := h.services.Standup.RemoveUser(channel.ID, userID); err != nil {
		return h.createErrorResponse(fmt.Sprintf("Failed to remove user: %v", err))
	}

	return &slack.Msg{
		ResponseType: slack.ResponseTypeInChannel,
		Text:         fmt.Sprintf("✅ <@%s> was removed from the daily order.", userID),
	}
}

func (h *SlackHandler) handleAway(cmd *slackcmd.Command, slashCmd *slack.SlashCommand) *slack.Msg {
	if len(cmd.Args) == 0 {
		return h.createErrorResponse("Please mention the user: `/standup away @user`")
	}

	userID := mentionToUserID(cmd.Args[0])

	channel, _, err := h.services.Standup.SetupChannel(slashCmd.ChannelID, slashCmd.ChannelName, slashCmd.TeamID)
	if err != nil {
		return h.createErrorResponse("Failed to set up channel")
	}

	if err := h.services.Standup.MarkUnavailable(context.Background(), channel.ID, userID); err != nil {
		return h.createErrorResponse(fmt.Sprintf("Failed to mark user as away: %v", err))
	}

	return &slack.Msg{
		ResponseType: slack.ResponseTypeInChannel,
		Text:         fmt.Sprintf("<@%s> is not available today.", userID),
	}
}

func (h *SlackHandler) handleListUsers(slashCmd *slack.SlashCommand) *slack.Msg {
	channel, _, err := h.services.Standup.SetupChannel(slashCmd.ChannelID, slashCmd.ChannelName, slashCmd.TeamID)
	if err != nil {
		return h.createErrorResponse("Failed to set up channel")
	}

	users, err := h.services.Standup.ListUsers(channel.ID)
	if err != nil {
		return h.createErrorResponse("Failed to list users")
	}

	if len(users) == 0 {
		return &slack.Msg{
			ResponseType: slack.ResponseTypeEphemeral,
			Text:         "No users in the daily order. Use `/standup add @user` to add one.",
		}
	}

	var userList strings.Builder
	userList.WriteString("*Members of the daily order:*\n")
	for i, user := range users {
		userList.WriteString(fmt.Sprintf("%d. %s\n", i+1, user.DisplayName))
	}

	return &slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         userList.String(),
	}
}

func (h *SlackHandler) handleConfig(cmd *slackcmd.Command, slashCmd *slack.SlashCommand) *slack.Msg {
	if len(cmd.Args) < 2 {
		return h.createErrorResponse("Use: `/standup config time HH:MM` or `/standup config days 1,2,4,5`")
	}

	configType := cmd.Args[0]
	configValue := strings.Join(cmd.Args[1:], " ")

	channel, _, err := h.services.Standup.SetupChannel(slashCmd.ChannelID, slashCmd.ChannelName, slashCmd.TeamID)
	if err != nil {
		return h.createErrorResponse("Failed to set up channel")
	}

	if err := h.services.Standup.UpdateChannelConfig(channel.ID, configType, configValue); err != nil {
		return h.createErrorResponse(fmt.Sprintf("Failed to update configuration: %v", err))
	}

	return &slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         fmt.Sprintf("✅ Configuration updated: %s = %s", configType, configValue),
	}
}

func (h *SlackHandler) handlePause(slashCmd *slack.SlashCommand) *slack.Msg {
	channel, _, err := h.services.Standup.SetupChannel(slashCmd.ChannelID, slashCmd.ChannelName, slashCmd.TeamID)
	if err != nil {
		return h.createErrorResponse("Failed to set up channel")
	}

	if err := h.services.Standup.PauseScheduler(channel.ID); err != nil {
		return h.createErrorResponse("Failed to pause the daily opening")
	}

	return &slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         "⏸️ Daily opening paused. Use `/standup resume` to turn it back on.",
	}
}

func (h *SlackHandler) handleResume(slashCmd *slack.SlashCommand) *slack.Msg {
	channel, _, err := h.services.Standup.SetupChannel(slashCmd.ChannelID, slashCmd.ChannelName, slashCmd.TeamID)
	if err != nil {
		return h.createErrorResponse("Failed to set up channel")
	}

	if err := h.services.Standup.ResumeScheduler(channel.ID); err != nil {
		return h.createErrorResponse("Failed to resume the daily opening")
	}

	return &slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         "▶️ Daily opening resumed.",
	}
}

func (h *SlackHandler) handleReport(slashCmd *slack.SlashCommand) *slack.Msg {
	channel, _, err := h.services.Standup.SetupChannel(slashCmd.ChannelID, slashCmd.ChannelName, slashCmd.TeamID)
	if err != nil {
		return h.createErrorResponse("Failed to set up channel")
	}

	report, err := h.services.Standup.TodayReport(context.Background(), channel.ID)
	if err != nil {
		return h.createErrorResponse("Failed to build today's report")
	}

	if report == "" {
		return &slack.Msg{
			ResponseType: slack.ResponseTypeEphemeral,
			Text:         "No orders for today yet.",
		}
	}

	return &slack.Msg{
		ResponseType: slack.ResponseTypeInChannel,
		Text:         report,
	}
}

func (h *SlackHandler) handleHelp() *slack.Msg {
	return &slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         slackcmd.GetHelpText(),
	}
}

func (h *SlackHandler) createErrorResponse(message string) *slack.Msg {
	return &slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         fmt.Sprintf("❌ %s", message),
	}
}

func (h *SlackHandler) respondWithError(w http.ResponseWriter, message string) {
	response := h.createErrorResponse(message)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
