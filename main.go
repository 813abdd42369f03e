package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/RichardoC/medichat/internal/chat"
	"github.com/RichardoC/medichat/internal/config"
	"github.com/RichardoC/medichat/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newAskCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newAskCommand() *cobra.Command {
	var detectOnly, verbose bool

	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask the medical assistant a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zap.NewNop()
			if verbose {
				if l, err := zap.NewDevelopment(); err == nil {
					logger = l
				}
			}
			defer logger.Sync()

			if err := config.LoadDotEnv(); err != nil {
				logger.Warn("failed to read .env file", zap.Error(err))
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			orchestrator := chat.NewFromConfig(ctx, cfg, logger)
			question := strings.Join(args, " ")

			if detectOnly {
				fmt.Fprintln(cmd.OutOrStdout(), orchestrator.DetectLanguage(ctx, question))
				return nil
			}

			s := session.New("cli", orchestrator, logger)
			reply, accepted, err := s.Submit(ctx, question)
			if err != nil {
				return err
			}
			if !accepted {
				return fmt.Errorf("question is empty")
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
			return nil
		},
	}

	cmd.Flags().BoolVar(&detectOnly, "detect-only", false, "print the detected language and exit")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline steps to stderr")
	return cmd
}
