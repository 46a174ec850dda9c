package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lumerin-protocol/proposal-verifier/internal/config"
	"github.com/Lumerin-protocol/proposal-verifier/internal/handlers"
	"github.com/Lumerin-protocol/proposal-verifier/internal/handlers/httphandlers"
	"github.com/Lumerin-protocol/proposal-verifier/internal/interfaces"
	"github.com/Lumerin-protocol/proposal-verifier/internal/lib"
	"github.com/Lumerin-protocol/proposal-verifier/internal/repositories/contracts"
	"github.com/Lumerin-protocol/proposal-verifier/internal/sighash"
	"github.com/Lumerin-protocol/proposal-verifier/internal/verifier"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	err := start()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func start() error {
	// .env is optional, environment variables and flags take precedence
	_ = godotenv.Load()

	var cfg config.Config
	err := config.LoadConfig(&cfg, &os.Args)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg, cfg.Log.LevelApp)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	httpLog, err := newLogger(cfg, cfg.Log.LevelHTTP)
	if err != nil {
		return err
	}

	watcherLog, err := newLogger(cfg, cfg.Log.LevelWatcher)
	if err != nil {
		return err
	}

	log.Infof("proposal verifier %s, environment %s", config.BuildVersion, cfg.Environment)
	log.Debugf("config: %+v", cfg.GetSanitized())

	publicUrl, err := lib.ParsePublicURL(cfg.Web.PublicUrl)
	if err != nil {
		return err
	}

	registry := sighash.NewDefaultRegistry()
	err = registry.RegisterFunctions(config.SplitList(cfg.Verifier.KnownFunctions)...)
	if err != nil {
		return fmt.Errorf("invalid known functions: %w", err)
	}
	err = registry.RegisterEvents(config.SplitList(cfg.Verifier.KnownEvents)...)
	if err != nil {
		return fmt.Errorf("invalid known events: %w", err)
	}
	err = registry.RegisterEvents(config.SplitList(cfg.Watch.Events)...)
	if err != nil {
		return fmt.Errorf("invalid watched events: %w", err)
	}
	log.Infof("signature registry loaded, %d signatures", registry.Len())

	ver := verifier.NewVerifier(registry, log.Named("VERIFIER"))
	eventLog := contracts.NewEventLog(cfg.Watch.HistorySize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-shutdownChan
		log.Warnf("Received signal: %s", s)
		cancel()

		s = <-shutdownChan
		log.Warnf("Received signal: %s. Forcing exit...", s)
		os.Exit(1)
	}()

	engine := httphandlers.NewHTTPHandler(registry, ver, eventLog, &cfg, publicUrl, httpLog.Named("HTTP"))
	runnables := []interfaces.Runnable{
		handlers.NewHTTPServer(cfg.Web.Address, engine, httpLog.Named("HTTP")),
	}

	if cfg.IsWatchEnabled() {
		client, err := contracts.DialContext(ctx, cfg.Blockchain.EthNodeAddress)
		if err != nil {
			return fmt.Errorf("cannot connect to ethereum node: %w", err)
		}
		defer client.Close()

		var fromBlock *big.Int
		if cfg.Watch.FromBlock > 0 {
			fromBlock = new(big.Int).SetUint64(cfg.Watch.FromBlock)
		}

		watcher := contracts.NewLogWatcherPolling(client, cfg.Blockchain.PollingInterval, cfg.Blockchain.MaxReconnects, watcherLog.Named("WATCHER"))
		runnables = append(runnables, contracts.NewEventWatcher(
			watcher,
			common.HexToAddress(cfg.Watch.ContractAddress),
			config.SplitList(cfg.Watch.Events),
			fromBlock,
			eventLog,
		))
	} else {
		log.Info("event watching is disabled")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, r := range runnables {
		r := r
		g.Go(func() error {
			return r.Run(ctx)
		})
	}

	err = g.Wait()
	log.Infof("App exited due to %s", err)
	return err
}

func newLogger(cfg config.Config, level string) (*lib.Logger, error) {
	return lib.NewLogger(lib.LoggerOptions{
		Level:      level,
		Color:      cfg.Log.Color,
		IsProd:     cfg.Log.IsProd,
		JSON:       cfg.Log.JSON,
		FolderPath: cfg.Log.FolderPath,
	})
}
