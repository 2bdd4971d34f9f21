package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/eigerco/multisend/internal/bank"
	"github.com/eigerco/multisend/internal/ledger"
	"github.com/eigerco/multisend/internal/store"
	"github.com/eigerco/multisend/pkg/db/pebble"
	"github.com/eigerco/multisend/pkg/log"
)

// Scenario is the input document: the balances the calculation runs
// against, the denom definitions and the multisend itself.
type Scenario struct {
	Balances    bank.Balances          `json:"balances"`
	Definitions []bank.DenomDefinition `json:"definitions"`
	Tx          bank.MultiSend         `json:"tx"`
}

type result struct {
	Changes bank.Balances `json:"changes"`
}

func loadScenario(filename string) (Scenario, error) {
	jsonData, err := os.ReadFile(filename)
	if err != nil {
		return Scenario{}, fmt.Errorf("error reading file: %w", err)
	}

	var s Scenario
	if err := json.Unmarshal(jsonData, &s); err != nil {
		return Scenario{}, fmt.Errorf("error unmarshaling JSON: %w", err)
	}
	return s, nil
}

// main calculates the balance changes of a multisend scenario.
// go run main.go scenario.json
// go run main.go -db data -seed -apply scenario.json
func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("multisend", flag.ContinueOnError)
	var (
		logLevel  = fs.String("log-level", "info", "Log level: trace|debug|info|warn|error")
		logFormat = fs.String("log-format", "console", "Log format: console|json")
		dbPath    = fs.String("db", "", "Ledger directory; required with -apply")
		apply     = fs.Bool("apply", false, "Apply the multisend to the ledger instead of the scenario balances")
		seed      = fs.Bool("seed", false, "With -apply, store the scenario definitions and credit its balances first")
		strict    = fs.Bool("strict", false, "With -apply, reject denoms that have no definition")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: multisend [flags] scenario.json")
	}
	if !*apply && (*seed || *strict) {
		return errors.New("-seed and -strict require -apply")
	}

	level, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		return fmt.Errorf("invalid -log-level: %w", err)
	}
	typ, err := log.ParseLoggerType(*logFormat)
	if err != nil {
		return fmt.Errorf("invalid -log-format: %w", err)
	}
	log.Init(log.Options{LogLevel: level, Type: typ})

	s, err := loadScenario(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := bank.ValidateDefinitions(s.Definitions); err != nil {
		return err
	}

	var changes bank.Balances
	if *apply {
		if *dbPath == "" {
			return errors.New("-apply requires -db")
		}
		changes, err = applyScenario(*dbPath, s, *seed, *strict)
	} else {
		changes, err = bank.CalculateBalanceChanges(s.Balances, s.Definitions, s.Tx)
	}
	if err != nil {
		return err
	}
	log.CLI.Info().Int("accounts", len(changes)).Msg("balance changes calculated")

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result{Changes: changes})
}

func applyScenario(path string, s Scenario, seed, strict bool) (bank.Balances, error) {
	kv, err := pebble.NewKVStoreAt(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	l := store.NewLedger(kv)
	defer l.Close() //nolint:errcheck

	if seed {
		for _, def := range s.Definitions {
			if err := l.PutDefinition(def); err != nil {
				return nil, err
			}
		}
		for _, b := range s.Balances {
			if err := l.Credit(b.Address, b.Coins); err != nil {
				return nil, err
			}
		}
		log.CLI.Debug().
			Int("definitions", len(s.Definitions)).
			Int("accounts", len(s.Balances)).
			Msg("ledger seeded")
	}

	return ledger.NewProcessor(l, ledger.Options{Strict: strict}).Process(s.Tx)
}
