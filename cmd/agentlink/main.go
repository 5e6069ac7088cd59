package main

import (
	"fmt"
	"os"

	"github.com/caelinsutch/agentlink/internal/cli"
	"github.com/caelinsutch/agentlink/pkg/ui"
)

func main() {
	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		styles := ui.NewStyles()
		fmt.Fprintln(os.Stderr, styles.Error.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}
