package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ent0n29/speakstream/internal/app"
	"github.com/ent0n29/speakstream/internal/assistant"
)

var sayCmd = &cobra.Command{
	Use:   "say <question>",
	Short: "Ask one question, print the streamed reply and wait for speech to finish",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSay,
}

func runSay(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	built, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = built.Cleanup() }()

	em, err := built.Assistant.Ask(ctx, strings.Join(args, " "), assistant.SourceChat)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for tok := range em.All(ctx) {
		fmt.Fprint(out, tok)
	}
	fmt.Fprintln(out)

	if err := built.Speech.WaitIdle(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	if ctx.Err() != nil {
		built.Assistant.StopAll()
		return context.Cause(ctx)
	}
	return nil
}
