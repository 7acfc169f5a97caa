// Command synthesis runs one suggestion synthesis pass for a user and prints
// the results. It is the operational entry point: schedulers and one-off
// backfills invoke it per user.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"polymath-backend/internal/di"

	"go.uber.org/zap"
)

func main() {
	userID := flag.String("user", "", "user ID to synthesize suggestions for")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall run timeout")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: synthesis -user <user-id> [-timeout 5m]")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	container, err := di.NewContainer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer container.Shutdown()

	logger := container.Logger
	suggestions, err := container.Engine.Run(ctx, *userID)
	if err != nil {
		logger.Error("synthesis run failed",
			zap.String("user_id", *userID),
			zap.Int("persisted", len(suggestions)),
			zap.Error(err))
		// Partial results are already durable; the non-zero exit tells the
		// scheduler to retry the remainder later.
		os.Exit(1)
	}

	for _, s := range suggestions {
		fmt.Printf("%s  %3d pts  %s\n", s.ID, s.TotalPoints, s.Title)
	}
	logger.Info("done",
		zap.String("user_id", *userID),
		zap.Int("suggestions", len(suggestions)))
}
