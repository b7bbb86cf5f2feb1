package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"lexcourt/config"
	"lexcourt/internal/errors"
	"lexcourt/internal/infra/persistence/migrations"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("Migration failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(args []string) error {
	var databaseURL string

	flagSet := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	flagSet.StringVar(&databaseURL, "database-url", "", "postgres:// URL (default: migrate.databaseUrl from config)")
	flagSet.BoolP("help", "h", false, "show help")
	// Flags end at the command so that "steps -1" keeps its negative count.
	flagSet.SetInterspersed(false)

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)

			return nil
		}

		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)

		return nil
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(flagSet)

		return errors.New("missing command")
	}

	if databaseURL == "" {
		cfg, err := config.New()
		if err != nil {
			return errors.Wrap(err, "load config")
		}
		databaseURL = cfg.Migrate.DatabaseURL
	}

	switch rest[0] {
	case "up":
		return migrations.Up(databaseURL)
	case "down":
		return migrations.Down(databaseURL)
	case "steps":
		if len(rest) < 2 {
			return errors.New("steps needs a count, e.g. steps -1")
		}
		n, err := strconv.Atoi(rest[1])
		if err != nil {
			return errors.Wrapf(err, "invalid step count %q", rest[1])
		}

		return migrations.Steps(databaseURL, n)
	case "version":
		version, dirty, err := migrations.Version(databaseURL)
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)

		return nil
	default:
		return errors.Errorf("unknown command %q", rest[0])
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Applies the lexcourt schema.

Usage:
  migrate [flags] up|down|version
  migrate [flags] steps N

Flags:
%s`, flagSet.FlagUsages())
}
