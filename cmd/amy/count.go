package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/comigor/amy/internal/config"
	"github.com/comigor/amy/internal/conversation"
	"github.com/comigor/amy/internal/llm"
)

var (
	countLimit  int
	countActual bool
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Run the counting self-test",
	Long: `Ask the model to count upwards, one integer per reply. The session ends
successfully at the limit, or terminates at the first wrong number.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var completion conversation.CompletionProvider = llm.Counting{}
		if countActual {
			llmCfg := cfg.LLM
			llmCfg.Provider = "openai"
			p, err := llm.NewProvider(llmCfg)
			if err != nil {
				return err
			}
			completion = p
		}
		return runCount(cmd.Context(), cfg, completion, cmd.OutOrStdout(), countLimit)
	},
}

func init() {
	countCmd.Flags().IntVar(&countLimit, "limit", 10, "Stop after verifying this number (0 counts until a mismatch)")
	countCmd.Flags().BoolVar(&countActual, "actual", false, "Count with the configured OpenAI model")
}

func runCount(ctx context.Context, cfg *config.Config, completion conversation.CompletionProvider, out io.Writer, limit int) error {
	counter := conversation.Counter{Instruction: cfg.Engine.CountInstruction, Limit: limit}
	s, err := newSession(cfg, completion, nil, conversation.WithCounter(counter))
	if err != nil {
		return err
	}
	defer s.Close()

	instruction := counter.Instruction
	if instruction == "" {
		instruction = conversation.DefaultCountInstruction
	}
	if _, err := s.engine.Send(ctx, s.protocol.UserContent(instruction)); err != nil {
		fmt.Fprintf(out, "counting stopped while expecting %d: %v\n", s.engine.Counter(), err)
		return err
	}
	verified := s.engine.Counter() - 1
	if limit > 0 && verified < limit {
		// a provider failure ended the turn early
		fmt.Fprintf(out, "counting paused at %d: model unavailable\n", verified)
		return nil
	}
	fmt.Fprintf(out, "counted to %d\n", verified)
	return nil
}
