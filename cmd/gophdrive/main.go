package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophdrive/internal/cli"
)

func main() {

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := cli.NewCommand().Run(ctx, os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.Describe(err))
		cancel()
		os.Exit(cli.ExitCode(err))
	}

}
