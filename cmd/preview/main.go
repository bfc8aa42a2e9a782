// Command preview computes revenue statements for plan, subscription and
// metrics fixture files without any backing service.
//
// Usage:
//
//	preview statements --plan plan.yaml --subscription sub.yaml --metrics metrics.yaml [--debug]
//	preview billing-periods --plan plan.yaml --subscription sub.yaml
//	preview bills --plan plan.yaml --subscription sub.yaml --metrics metrics.yaml
//	preview validate --plan plan.yaml
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func init() {
	time.Local = time.UTC
}

func main() {
	// .env is optional, the environment and config.yaml still apply
	_ = godotenv.Load()

	if err := newCLIApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCLIApp() *cli.App {
	return &cli.App{
		Name:  "preview",
		Usage: "Compute revenue statements from plan and metric fixtures",
		Commands: []*cli.Command{
			statementsCommand(),
			billingPeriodsCommand(),
			billsCommand(),
			validateCommand(),
		},
	}
}
