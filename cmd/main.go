package main

import (
	"fmt"
	"os"

	"gitlab.com/testhub.net/internal/cli"
	logger2 "gitlab.com/testhub.net/internal/global/logger"
)

var version = "dev"

func main() {
	rootCmd := cli.NewRootCommand(version)
	if err := rootCmd.Execute(); err != nil {
		logger2.Debug("Command failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
