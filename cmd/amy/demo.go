package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/comigor/amy/internal/config"
	"github.com/comigor/amy/internal/conversation"
	"github.com/comigor/amy/internal/llm"
	"github.com/comigor/amy/pkg/actions"
)

const demoMessage = "What is my schedule for tomorrow?"

var (
	demoActual bool
	demoDelay  time.Duration
)

var demoCmd = &cobra.Command{
	Use:   "demo [message]",
	Short: "Send one message and print the reply",
	Long: `Start a session, wait for the delay, then send a single user message
(by default asking for tomorrow's schedule) and print the reply.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := demoMessage
		if len(args) == 1 {
			message = args[0]
		}
		llmCfg := cfg.LLM
		if demoActual {
			llmCfg.Provider = "openai"
		} else {
			llmCfg.Provider = "simulated"
		}
		completion, err := llm.NewProvider(llmCfg)
		if err != nil {
			return err
		}
		return runDemo(cmd.Context(), cfg, completion, cmd.OutOrStdout(), message, demoDelay)
	},
}

func init() {
	demoCmd.Flags().BoolVar(&demoActual, "actual", false, "Use the configured OpenAI model instead of the simulated one")
	demoCmd.Flags().DurationVar(&demoDelay, "delay", time.Second, "Wait before sending the message")
}

var (
	replyLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	replyText  = lipgloss.NewStyle().PaddingLeft(2)
)

func runDemo(ctx context.Context, cfg *config.Config, completion conversation.CompletionProvider, out io.Writer, message string, delay time.Duration) error {
	router, err := actions.NewFromConfig(ctx, cfg.Actions)
	if err != nil {
		return err
	}
	defer router.Close()

	s, err := newSession(cfg, completion, router)
	if err != nil {
		return err
	}
	defer s.Close()

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	reply, err := s.engine.Send(ctx, s.protocol.UserContent(message))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, replyLabel.Render("amy:"))
	fmt.Fprintln(out, replyText.Render(reply))
	return nil
}
