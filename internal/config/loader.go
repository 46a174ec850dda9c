package config

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Lumerin-protocol/proposal-verifier/internal/lib"
	"github.com/go-playground/validator/v10"
	"github.com/omeid/uconfig/flat"
)

const (
	TagEnv  = "env"
	TagFlag = "flag"
	TagDesc = "desc"
)

var (
	ErrFlagParse        = errors.New("cannot parse flag")
	ErrEnvParse         = errors.New("cannot parse env variable")
	ErrConfigInvalid    = errors.New("invalid config struct")
	ErrConfigValidation = errors.New("config validation error")
)

type Defaulter interface {
	SetDefaults()
}

// LoadConfig fills cfg from environment variables and command line flags, flags take precedence.
// Defaults are applied after parsing and before validation
func LoadConfig(cfg Defaulter, osArgs *[]string) error {
	// recursively iterates over each field of the nested struct
	fields, err := flat.View(cfg)
	if err != nil {
		return lib.WrapError(ErrConfigInvalid, err)
	}

	flagset := flag.NewFlagSet("", flag.ContinueOnError)

	for _, field := range fields {
		envName, ok := field.Tag(TagEnv)
		if !ok {
			continue
		}

		envValue, ok := os.LookupEnv(envName)
		if ok {
			err := field.Set(envValue)
			if err != nil {
				return lib.WrapError(ErrEnvParse, fmt.Errorf("%s: %w", envName, err))
			}
		}

		flagName, ok := field.Tag(TagFlag)
		if !ok {
			continue
		}

		flagDesc, _ := field.Tag(TagDesc)

		// writes flag value to variable
		flagset.Var(field, flagName, flagDesc)
	}

	args := os.Args
	if osArgs != nil {
		args = *osArgs
	}

	// flags override .env variables
	if len(args) > 0 {
		err = flagset.Parse(args[1:])
		if err != nil {
			return lib.WrapError(ErrFlagParse, err)
		}
	}

	cfg.SetDefaults()

	err = validator.New().Struct(cfg)
	if err != nil {
		return lib.WrapError(ErrConfigValidation, err)
	}

	return nil
}
