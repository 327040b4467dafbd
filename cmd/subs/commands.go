package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"subtrack/internal/client"
	"subtrack/internal/config"
	"subtrack/internal/core"
	"subtrack/internal/log"
)

var errUsage = errors.New("usage: subs [-api URL] [-rate N] list|total|add|update|rm")

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := config.Load()

	global := flag.NewFlagSet("subs", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "subscriptions collection URL")
	global.Float64Var(&cfg.ExchangeRate, "rate", cfg.ExchangeRate, "USD to HNL exchange rate")
	global.StringVar(&cfg.LogLevel, "log-level", "error", "log level")
	if err := global.Parse(args); err != nil {
		return err
	}
	if err := cfg.ValidateClient(); err != nil {
		return err
	}
	if global.NArg() == 0 {
		return errUsage
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Component: log.ComponentClient, Output: stderr})
	agg := client.NewAggregator(client.NewAPI(cfg.APIBaseURL, nil), cfg.ExchangeRate, logger.Logger)

	<-agg.Start(ctx)
	if msg := agg.Err(); msg != "" {
		return errors.New(msg)
	}

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "list", "ls":
		printList(stdout, agg)
		printTotal(stdout, agg)
		return nil
	case "total":
		printTotal(stdout, agg)
		return nil
	case "add":
		in, _, _, err := parseInput("add", rest, stderr, false)
		if err != nil {
			return err
		}
		created, err := agg.Add(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "created %s\n", created.ID)
		printTotal(stdout, agg)
		return nil
	case "update":
		in, id, set, err := parseInput("update", rest, stderr, true)
		if err != nil {
			return err
		}
		// Updates replace the whole record, so fields left out keep their
		// current values instead of the add defaults.
		for _, s := range agg.Subscriptions() {
			if s.ID == id {
				in = mergeInput(client.InputFrom(s), in, set)
				break
			}
		}
		if _, err := agg.Update(ctx, id, in); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "updated %s\n", id)
		printTotal(stdout, agg)
		return nil
	case "rm", "delete":
		if len(rest) != 1 {
			return errors.New("usage: subs rm ID")
		}
		if err := agg.Delete(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted %s\n", rest[0])
		printTotal(stdout, agg)
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

// parseInput reads subscription fields from flags and reports which flags
// were given. Validation is left to the server so its messages reach the
// user unchanged.
func parseInput(name string, args []string, stderr io.Writer, wantID bool) (client.Input, string, map[string]bool, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var in client.Input
	var currency, frequency string
	fs.StringVar(&in.Name, "name", "", "subscription name")
	fs.Float64Var(&in.Price, "price", 0, "price per billing period")
	fs.StringVar(&currency, "currency", string(core.HNL), "one of "+choices(core.Currencies()))
	fs.StringVar(&frequency, "frequency", string(core.Monthly), "one of "+choices(core.Frequencies()))
	fs.StringVar(&in.PaymentDate, "date", "", "next payment date")
	if err := fs.Parse(args); err != nil {
		return client.Input{}, "", nil, err
	}
	in.Currency = core.Currency(currency)
	in.Frequency = core.Frequency(frequency)

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !wantID {
		if fs.NArg() != 0 {
			return client.Input{}, "", nil, fmt.Errorf("unexpected arguments %v", fs.Args())
		}
		return in, "", set, nil
	}
	if fs.NArg() != 1 {
		return client.Input{}, "", nil, fmt.Errorf("usage: subs %s [flags] ID", name)
	}
	return in, fs.Arg(0), set, nil
}

// mergeInput takes the flags that were set from in and everything else from base.
func mergeInput(base, in client.Input, set map[string]bool) client.Input {
	if set["name"] {
		base.Name = in.Name
	}
	if set["price"] {
		base.Price = in.Price
	}
	if set["currency"] {
		base.Currency = in.Currency
	}
	if set["frequency"] {
		base.Frequency = in.Frequency
	}
	if set["date"] {
		base.PaymentDate = in.PaymentDate
	}
	return base
}

func choices[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func printList(w io.Writer, agg *client.Aggregator) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tCURRENCY\tFREQUENCY\tPAYMENT DATE\tMONTHLY (HNL)")
	for _, s := range agg.Subscriptions() {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\t%s\t%s\n",
			s.ID, s.Name, s.Price, s.Currency, s.Frequency, s.PaymentDate,
			core.MonthlyAmount(s, agg.ExchangeRate()).StringFixed(2))
	}
	tw.Flush()
}

func printTotal(w io.Writer, agg *client.Aggregator) {
	fmt.Fprintf(w, "Monthly total: %s %s (%d subscriptions, 1 USD = %g HNL)\n",
		agg.MonthlyTotal().StringFixed(2), core.ReportingCurrency,
		len(agg.Subscriptions()), agg.ExchangeRate())
}
