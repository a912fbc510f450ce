package main

import (
	"context"
	"fmt"
	"os"

	"user-account-service/cmd/api/app"
	"user-account-service/cmd/api/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "application exited with error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := server.WithSignal(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		return err
	}

	return a.Run(ctx)
}
