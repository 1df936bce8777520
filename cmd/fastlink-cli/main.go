package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/aussiebroadwan/fastlink/internal/cli"
	"github.com/aussiebroadwan/fastlink/pkg/authsdk"
)

func main() {
	server := flag.String("server", envOr("FASTLINK_URL", "http://localhost:8080"), "FastLink server URL")
	statePath := flag.String("state", defaultStatePath(), "session state file")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), cli.ErrUsage)
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := authsdk.NewSDKClient(*server)
	session := authsdk.NewSession(client, authsdk.WithStateStore(authsdk.NewFileStateStore(*statePath)))
	if err := session.Initialize(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	app := cli.NewApp(client, session, os.Stdin, os.Stdout)
	if err := app.Run(ctx, flag.Args()); err != nil {
		if apiErr, ok := authsdk.AsAPIError(err); ok {
			err = errors.New(apiErr.Message)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "fastlink", "session.json")
}
