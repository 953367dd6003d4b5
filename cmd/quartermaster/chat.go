package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"quartermaster/pkg/types"
)

// replyFunc produces the agent turn for the latest user message. The
// conversation already includes the user's turn.
type replyFunc func(ctx context.Context, message string, conversation []types.ChatMessage) (types.ChatMessage, error)

// chatLoop runs a readline REPL against an agent until exit/quit or EOF.
func (a *app) chatLoop(ctx context.Context, userRole string, opening []types.ChatMessage, reply replyFunc) error {
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".quartermaster_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          cyan("you> "),
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("start chat: %w", err)
	}
	defer rl.Close()

	conversation := append([]types.ChatMessage(nil), opening...)
	for _, msg := range opening {
		printMarkdown(fmt.Sprintf("**%s:** %s", msg.Role, msg.Message))
	}
	fmt.Println(yellow("Type exit or quit to leave."))

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		}
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		userTurn := types.ChatMessage{Role: userRole, Message: line, Timestamp: time.Now()}
		conversation = append(conversation, userTurn)

		agentTurn, err := reply(ctx, line, conversation)
		if err != nil {
			fmt.Fprintln(os.Stderr, red("Error:"), err)
			conversation = conversation[:len(conversation)-1]
			continue
		}
		conversation = append(conversation, agentTurn)
		printMarkdown(fmt.Sprintf("**%s:** %s", agentTurn.Role, agentTurn.Message))
	}
	return nil
}
