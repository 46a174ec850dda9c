package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Lumerin-protocol/proposal-verifier/internal/config"
	"github.com/Lumerin-protocol/proposal-verifier/internal/evmscript"
	"github.com/Lumerin-protocol/proposal-verifier/internal/lib"
	"github.com/Lumerin-protocol/proposal-verifier/internal/sighash"
	"github.com/Lumerin-protocol/proposal-verifier/internal/verifier"
)

var errNothingToDo = errors.New("one of --function, --event or --script is required")

type Config struct {
	Function       string `env:"SIGHASH_FUNCTION"        flag:"function"        desc:"function signature, prints the selector"`
	Event          string `env:"SIGHASH_EVENT"           flag:"event"           desc:"event signature, prints the topic"`
	Script         string `env:"SIGHASH_SCRIPT"          flag:"script"          desc:"hex encoded calls script, prints the decoded actions"`
	KnownFunctions string `env:"SIGHASH_KNOWN_FUNCTIONS" flag:"known-functions" desc:"semicolon-separated function signatures used to resolve script actions"`
}

func (cfg *Config) SetDefaults() {
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	err := config.LoadConfig(&cfg, &os.Args)
	if err != nil {
		return err
	}

	if cfg.Function == "" && cfg.Event == "" && cfg.Script == "" {
		return errNothingToDo
	}

	if cfg.Function != "" {
		printSignature(cfg.Function)
		fmt.Printf("selector:  %s\n\n", sighash.GetFunctionSignature(cfg.Function))
	}

	if cfg.Event != "" {
		printSignature(cfg.Event)
		fmt.Printf("topic:     %s\n\n", sighash.GetEventTopic(cfg.Event))
	}

	if cfg.Script != "" {
		return describeScript(cfg)
	}
	return nil
}

// printSignature prints canonical form when the signature parses, selectors are derived from the input as is
func printSignature(s string) {
	fmt.Printf("signature: %s\n", s)
	sig, err := sighash.ParseSignature(s)
	if err == nil && sig.Canonical() != s {
		fmt.Printf("canonical: %s (selector %s)\n", sig.Canonical(), sig.Selector())
	}
}

func describeScript(cfg Config) error {
	script, err := evmscript.DecodeHexBytes(cfg.Script)
	if err != nil {
		return err
	}

	registry := sighash.NewDefaultRegistry()
	err = registry.RegisterFunctions(config.SplitList(cfg.KnownFunctions)...)
	if err != nil {
		return err
	}

	calls, err := verifier.NewVerifier(registry, lib.NewNopLogger()).DescribeScript(script)
	if err != nil {
		return err
	}

	fmt.Printf("calls script, %d actions\n", len(calls))
	for _, call := range calls {
		fmt.Printf("\n#%d to %s\n", call.Index, call.To.Hex())
		fmt.Printf("  selector:  %s\n", call.Selector)
		if call.Signature != "" {
			fmt.Printf("  signature: %s\n", call.Signature)
		}
		for i, arg := range verifier.FormatArgs(call.Args) {
			fmt.Printf("  arg%d:      %v\n", i, arg)
		}
		if call.Reason != "" {
			fmt.Printf("  note:      %s\n", call.Reason)
		}
	}
	return nil
}
