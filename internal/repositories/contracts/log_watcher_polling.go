package contracts

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/Lumerin-protocol/proposal-verifier/internal/interfaces"
	"github.com/Lumerin-protocol/proposal-verifier/internal/lib"
	"github.com/Lumerin-protocol/proposal-verifier/internal/sighash"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const RECONNECT_TIMEOUT = 2 * time.Second

var ErrNoEvents = errors.New("no events to watch")

type LogWatcherPolling struct {
	// config
	maxReconnects int
	pollInterval  time.Duration
	retryInterval time.Duration

	// deps
	client EthereumClient
	log    interfaces.ILogger
}

func NewLogWatcherPolling(client EthereumClient, pollInterval time.Duration, maxReconnects int, log interfaces.ILogger) *LogWatcherPolling {
	if maxReconnects < 1 {
		maxReconnects = 1
	}
	return &LogWatcherPolling{
		client:        client,
		pollInterval:  pollInterval,
		retryInterval: RECONNECT_TIMEOUT,
		maxReconnects: maxReconnects,
		log:           log,
	}
}

func (w *LogWatcherPolling) SetRetryInterval(interval time.Duration) {
	w.retryInterval = interval
}

// Watch polls the contract logs with topic0 matching one of the event signatures and passes them to sink
// until context is cancelled or requests fail maxReconnects times in a row.
// If fromBlock is nil watching starts from the latest block
func (w *LogWatcherPolling) Watch(ctx context.Context, contractAddr common.Address, signatures []string, fromBlock *big.Int, sink func(WatchedEvent)) error {
	if len(signatures) == 0 {
		return ErrNoEvents
	}

	topics := make(map[common.Hash]string, len(signatures))
	topicList := make([]common.Hash, 0, len(signatures))
	for _, s := range signatures {
		sig, err := sighash.ParseSignature(s)
		if err != nil {
			return err
		}
		topic := sig.Topic()
		if _, ok := topics[topic]; ok {
			continue
		}
		topics[topic] = sig.Canonical()
		topicList = append(topicList, topic)
	}

	var nextBlock uint64
	if fromBlock == nil {
		head, err := w.headRetry(ctx)
		if err != nil {
			return err
		}
		nextBlock = head
	} else {
		nextBlock = fromBlock.Uint64()
	}

	w.log.Infof("watching %d events of %s from block %d", len(topicList), contractAddr.Hex(), nextBlock)

	for {
		head, err := w.headRetry(ctx)
		if err != nil {
			return err
		}

		if head >= nextBlock {
			query := ethereum.FilterQuery{
				Addresses: []common.Address{contractAddr},
				FromBlock: new(big.Int).SetUint64(nextBlock),
				ToBlock:   new(big.Int).SetUint64(head),
				Topics:    [][]common.Hash{topicList},
			}
			logs, err := w.filterLogsRetry(ctx, query)
			if err != nil {
				return err
			}

			for _, log := range logs {
				if log.Removed || len(log.Topics) == 0 {
					continue
				}
				sig, ok := topics[log.Topics[0]]
				if !ok {
					continue
				}
				sink(mapEvent(sig, log))
			}

			w.log.Debugf("queried blocks %d-%d, %d logs", nextBlock, head, len(logs))
			nextBlock = head + 1
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.pollInterval):
		}
	}
}

func (w *LogWatcherPolling) headRetry(ctx context.Context) (uint64, error) {
	var head uint64
	err := w.retry(ctx, func() error {
		header, err := w.client.HeaderByNumber(ctx, nil)
		if err != nil {
			return err
		}
		head = header.Number.Uint64()
		return nil
	})
	return head, err
}

func (w *LogWatcherPolling) filterLogsRetry(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := w.retry(ctx, func() error {
		var err error
		logs, err = w.client.FilterLogs(ctx, query)
		return err
	})
	return logs, err
}

func (w *LogWatcherPolling) retry(ctx context.Context, f func() error) error {
	var lastErr error

	return lib.Retry(ctx, w.maxReconnects, w.retryInterval, func(attempt int) error {
		err := f()
		if err != nil {
			lastErr = err
			w.log.Debugf("request failed, attempt %d: %s", attempt+1, err)
			return err
		}
		if attempt > 0 {
			w.log.Warnf("request succeeded after %d attempts, last error: %s", attempt+1, lastErr)
		}
		return nil
	})
}

func mapEvent(signature string, log types.Log) WatchedEvent {
	return WatchedEvent{
		Signature:   signature,
		Topic:       log.Topics[0],
		Address:     log.Address,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
		Topics:      log.Topics,
		Data:        log.Data,
		ObservedAt:  time.Now(),
	}
}
