package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Session mirrors the API's chat session payload.
type Session struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
}

type askPayload struct {
	Query string `json:"query"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

// ChatCmd creates the chat command group.
func ChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Converse with the corpus",
	}

	cmd.AddCommand(chatNewCmd())
	cmd.AddCommand(chatAskCmd())
	cmd.AddCommand(chatEndCmd())
	cmd.AddCommand(chatReplCmd())

	return cmd
}

func chatNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new conversation session",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			session, err := createSession(api)
			if err != nil {
				return err
			}

			fmt.Println(session.ID)
			return nil
		},
	}
}

func chatAskCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question in an existing session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			answer, err := ask(api, sessionID, strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Println(answer)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session ID (required)")
	cmd.MarkFlagRequired("session")

	return cmd
}

func chatEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end <session_id>",
		Short: "End a conversation session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			if _, err := api.Delete("/chat/sessions/" + args[0]); err != nil {
				return fmt.Errorf("failed to end session: %w", err)
			}

			fmt.Println("session ended")
			return nil
		},
	}
}

func chatReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive conversation loop",
		Long:  "Starts a session and reads questions from stdin until EOF. The session is ended on exit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			session, err := createSession(api)
			if err != nil {
				return err
			}
			defer api.Delete("/chat/sessions/" + session.ID)

			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("> ")
			for scanner.Scan() {
				query := strings.TrimSpace(scanner.Text())
				if query == "" {
					fmt.Print("> ")
					continue
				}

				answer, err := ask(api, session.ID, query)
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
				} else {
					fmt.Println(answer)
				}
				fmt.Print("> ")
			}

			return scanner.Err()
		},
	}
}

func createSession(api *APIClient) (*Session, error) {
	resp, err := api.Post("/chat/sessions", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(resp.Data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &session, nil
}

func ask(api *APIClient, sessionID, query string) (string, error) {
	resp, err := api.Post("/chat/sessions/"+sessionID+"/messages", askPayload{Query: query})
	if err != nil {
		return "", fmt.Errorf("failed to ask: %w", err)
	}

	var payload answerPayload
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return "", fmt.Errorf("failed to parse answer: %w", err)
	}
	return payload.Answer, nil
}
