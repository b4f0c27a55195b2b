package slack

import (
	"fmt"
	"strings"
)

type CommandType string

const (
	CmdAdd    CommandType = "add"
	CmdRemove CommandType = "remove"
	CmdList   CommandType = "list"
	CmdAway   CommandType = "away"
	CmdConfig CommandType = "config"
	CmdPause  CommandType = "pause"
	CmdResume CommandType = "resume"
	CmdReport CommandType = "report"
	CmdHelp   CommandType = "help"
)

type Command struct {
	Type CommandType
	Args []string
	Raw  string
}

func ParseCommand(text string) (*Command, error) {
	parts := strings.Fields(strings.TrimSpace(text))
	if len(parts) == 0 {
		return &Command{Type: CmdHelp}, nil
	}

	cmd := &Command{
		Raw: text,
	}

	switch parts[0] {
	case "add":
		cmd.Type = CmdAdd
		if len(parts) > 1 {
			cmd.Args = parts[1:]
		}
	case "remove", "rm":
		cmd.Type = CmdRemove
		if len(parts) > 1 {
			cmd.Args = parts[1:]
		}
	case "list", "ls":
		cmd.Type = CmdList
	case "away", "unavailable":
		cmd.Type = CmdAway
		if len(parts) > 1 {
			cmd.Args = parts[1:]
		}
	case "config":
		cmd.Type = CmdConfig
		if len(parts) > 1 {
			cmd.Args = parts[1:]
		}
	case "pause":
		cmd.Type = CmdPause
	case "resume":
		cmd.Type = CmdResume
	case "report":
		cmd.Type = CmdReport
	case "help", "":
		cmd.Type = CmdHelp
	default:
		return nil, fmt.Errorf("unknown command: %s", parts[0])
	}

	return cmd, nil
}

func GetHelpText() string {
	return `*Available Commands:*

*Configuration:*
• ` + "`/standup config time HH:MM`" + ` - Set the daily opening time (ex: 09:30)
• ` + "`/standup config days 1,2,4,5`" + ` - Set active days (1=Mon, 2=Tue, 3=Wed, 4=Thu, 5=Fri, 6=Sat, 7=Sun)

*Manage Members:*
• ` + "`/standup add @user`" + ` - Add member to the daily order
• ` + "`/standup remove @user`" + ` - Remove member from the daily order
• ` + "`/standup list`" + ` - List all members
• ` + "`/standup away @user`" + ` - Close a member's turn as not available today

*Daily flow (in channel messages):*
• answer the three questions when asked
• ` + "`skip`" + ` - Postpone your turn to the back of the queue
• ` + "`delete answer N`" + ` - Delete your answer to question N
• ` + "`vacation @user`" + ` - Put a user on vacation (admins only)

*Control:*
• ` + "`/standup pause`" + ` - Pause the daily opening
• ` + "`/standup resume`" + ` - Resume the daily opening
• ` + "`/standup report`" + ` - Post today's report`
}
