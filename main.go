package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adamokeah/shamzam/cmd"
	"github.com/adamokeah/shamzam/internal/buildinfo"
	"github.com/adamokeah/shamzam/internal/conf"
)

func main() {
	os.Exit(run())
}

func run() int {
	// .env and api.env must be in the environment before viper binds it
	if _, err := conf.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	v, err := conf.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.RootCommand(v, buildinfo.Current()).ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
