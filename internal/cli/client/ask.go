package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ChatRequest represents the chat API request.
type ChatRequest struct {
	SessionID   string `json:"session_id,omitempty"`
	CharacterID string `json:"character_id,omitempty"`
	Message     string `json:"message"`
}

// ToolTrace is one executed tool call reported by the server.
type ToolTrace struct {
	Name     string `json:"name"`
	Args     string `json:"args"`
	Result   string `json:"result"`
	IsError  bool   `json:"is_error"`
	Duration int64  `json:"duration_ms"`
}

// ChatResponse represents the chat API response.
type ChatResponse struct {
	SessionID string      `json:"session_id"`
	Reply     string      `json:"reply"`
	ToolTrace []ToolTrace `json:"tool_trace,omitempty"`
	ChunkIDs  []string    `json:"chunk_ids,omitempty"`
	Reranked  bool        `json:"reranked"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		characterID string
		newSession  bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask the game assistant a question",
		Long:  "Sends a message to the assistant. The conversation continues across invocations until --new.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(cmd, strings.Join(args, " "), characterID, newSession, verbose, outputJSON)
		},
	}

	cmd.Flags().StringVar(&characterID, "character", "", "Character ID to play as")
	cmd.Flags().BoolVar(&newSession, "new", false, "Start a new session instead of continuing the last one")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show tool calls and retrieved chunk IDs")

	return cmd
}

func runAsk(cmd *cobra.Command, message, characterID string, newSession, verbose, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	sessionID := ""
	if !newSession {
		sessionID = LoadSessionID()
	}

	resp, err := api.Post("/chat", ChatRequest{
		SessionID:   sessionID,
		CharacterID: characterID,
		Message:     message,
	})
	if err != nil {
		return err
	}

	var chat ChatResponse
	if err := json.Unmarshal(resp.Data, &chat); err != nil {
		return fmt.Errorf("failed to parse chat response: %w", err)
	}

	if err := SaveSessionID(chat.SessionID); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to save session: %v\n", err)
	}

	if outputJSON {
		data, _ := json.MarshalIndent(chat, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if verbose {
		for _, trace := range chat.ToolTrace {
			status := "ok"
			if trace.IsError {
				status = "error"
			}
			fmt.Printf("[tool %s %s %dms] %s\n", trace.Name, status, trace.Duration, trace.Result)
		}
		if len(chat.ChunkIDs) > 0 {
			fmt.Printf("[context: %s, reranked=%v]\n", strings.Join(chat.ChunkIDs, ", "), chat.Reranked)
		}
	}

	fmt.Println(chat.Reply)
	return nil
}
