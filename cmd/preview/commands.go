package main

import (
	"fmt"
	"io"
	"time"

	"github.com/flexprice/revenue/internal/domain/revenue"
	"github.com/flexprice/revenue/internal/logger"
	"github.com/flexprice/revenue/internal/repository/file"
	"github.com/flexprice/revenue/internal/service"
	"github.com/flexprice/revenue/internal/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/k0kubun/pp"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func planFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "plan",
		Aliases:  []string{"p"},
		Usage:    "Path to the plan definition (JSON or YAML)",
		Required: true,
	}
}

func subscriptionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "subscription",
		Aliases:  []string{"s"},
		Usage:    "Path to the subscription definition (JSON or YAML)",
		Required: true,
	}
}

func debugFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "debug",
		Usage: "Log at debug level and dump the revenue trees to stderr",
	}
}

// computeFlags are shared by the commands that run the engine
func computeFlags() []cli.Flag {
	return []cli.Flag{
		planFlag(),
		subscriptionFlag(),
		&cli.StringFlag{
			Name:    "metrics",
			Aliases: []string{"m"},
			Usage:   "Path to the metrics fixture, switches to the static provider",
		},
		&cli.StringFlag{
			Name:  "now",
			Usage: "Current time (RFC3339), decides the lookahead window and estimated items",
		},
		&cli.DurationFlag{
			Name:  "lookahead",
			Usage: "Enumerate charge periods starting before now + lookahead",
		},
		debugFlag(),
	}
}

func statementsCommand() *cli.Command {
	return &cli.Command{
		Name:   "statements",
		Usage:  "Compute the revenue statements of a subscription",
		Flags:  computeFlags(),
		Action: runStatements,
	}
}

func runStatements(c *cli.Context) error {
	var (
		plans      *file.PlanRepository
		subs       *file.SubscriptionRepository
		statements service.StatementService
		log        *logger.Logger
	)
	if err := newApp(c, &plans, &subs, &statements, &log); err != nil {
		return err
	}

	p, err := plans.LoadFile(c.String("plan"))
	if err != nil {
		return err
	}
	sub, err := subs.LoadFile(c.String("subscription"))
	if err != nil {
		return err
	}
	if sub.Plan.ID != p.ID {
		log.Warnw("subscription refers to another plan, computing with the given one",
			"subscription_plan_id", sub.Plan.ID,
			"plan_id", p.ID,
		)
	}

	rp, err := plans.GetResolved(c.Context, p.ID)
	if err != nil {
		return err
	}
	result, err := statements.StatementsForSubscription(c.Context, sub, rp)
	if err != nil {
		return err
	}

	if c.Bool("debug") {
		pp.Fprintln(c.App.ErrWriter, result)
	}
	return writeJSON(c.App.Writer, result)
}

func billingPeriodsCommand() *cli.Command {
	return &cli.Command{
		Name:  "billing-periods",
		Usage: "List the billing periods of the first subscription period",
		Flags: []cli.Flag{
			planFlag(),
			subscriptionFlag(),
		},
		Action: func(c *cli.Context) error {
			var (
				plans      *file.PlanRepository
				subs       *file.SubscriptionRepository
				statements service.StatementService
			)
			if err := newApp(c, &plans, &subs, &statements); err != nil {
				return err
			}

			p, err := plans.LoadFile(c.String("plan"))
			if err != nil {
				return err
			}
			sub, err := subs.LoadFile(c.String("subscription"))
			if err != nil {
				return err
			}
			rp, err := plans.GetResolved(c.Context, p.ID)
			if err != nil {
				return err
			}

			periods, err := statements.BillingPeriods(c.Context, sub, rp)
			if err != nil {
				return err
			}
			return writeJSON(c.App.Writer, periods)
		},
	}
}

// billSummary is the printed form of a bill
type billSummary struct {
	ID        string           `json:"id"`
	Period    types.TimePeriod `json:"period"`
	BillTime  time.Time        `json:"bill_time"`
	Items     int              `json:"items"`
	Total     string           `json:"total"`
	Estimated bool             `json:"estimated"`
}

func summarizeBill(b *revenue.Bill, currency string) billSummary {
	return billSummary{
		ID:        b.ID,
		Period:    b.Period,
		BillTime:  b.BillTime(),
		Items:     len(b.Items),
		Total:     types.GetCurrencySymbol(currency) + b.Total().StringFixed(2),
		Estimated: b.Estimated(),
	}
}

func billsCommand() *cli.Command {
	return &cli.Command{
		Name:  "bills",
		Usage: "Group the revenue of a subscription into the bills of its first period",
		Flags: computeFlags(),
		Action: func(c *cli.Context) error {
			var (
				plans      *file.PlanRepository
				subs       *file.SubscriptionRepository
				statements service.StatementService
			)
			if err := newApp(c, &plans, &subs, &statements); err != nil {
				return err
			}

			p, err := plans.LoadFile(c.String("plan"))
			if err != nil {
				return err
			}
			sub, err := subs.LoadFile(c.String("subscription"))
			if err != nil {
				return err
			}
			rp, err := plans.GetResolved(c.Context, p.ID)
			if err != nil {
				return err
			}

			bills, err := statements.BillsForSubscription(c.Context, sub, rp)
			if err != nil {
				return err
			}
			if c.Bool("debug") {
				pp.Fprintln(c.App.ErrWriter, bills)
			}

			currency := rp.RootNode().Currency
			return writeJSON(c.App.Writer, lo.Map(bills, func(b *revenue.Bill, _ int) billSummary {
				return summarizeBill(b, currency)
			}))
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Report configuration issues of a plan",
		Flags: []cli.Flag{
			planFlag(),
		},
		Action: func(c *cli.Context) error {
			var (
				plans   *file.PlanRepository
				planSvc service.PlanService
			)
			if err := newApp(c, &plans, &planSvc); err != nil {
				return err
			}

			p, err := plans.LoadFile(c.String("plan"))
			if err != nil {
				return err
			}
			report := planSvc.Validate(c.Context, p)
			if err := writeJSON(c.App.Writer, report); err != nil {
				return err
			}
			if report.HasErrors() {
				return cli.Exit(fmt.Sprintf("plan %s has errors", p.ID), 2)
			}
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
