package contracts

import (
	"context"
	"math/big"

	"github.com/Lumerin-protocol/proposal-verifier/internal/interfaces"
	"github.com/ethereum/go-ethereum/common"
)

// EventWatcher is a runnable that stores watched contract events in the event log
type EventWatcher struct {
	contractAddr common.Address
	signatures   []string
	fromBlock    *big.Int

	watcher  *LogWatcherPolling
	eventLog *EventLog
}

func NewEventWatcher(watcher *LogWatcherPolling, contractAddr common.Address, signatures []string, fromBlock *big.Int, eventLog *EventLog) *EventWatcher {
	return &EventWatcher{
		contractAddr: contractAddr,
		signatures:   signatures,
		fromBlock:    fromBlock,
		watcher:      watcher,
		eventLog:     eventLog,
	}
}

func (w *EventWatcher) Run(ctx context.Context) error {
	return w.watcher.Watch(ctx, w.contractAddr, w.signatures, w.fromBlock, func(event WatchedEvent) {
		w.watcher.log.Infof("event %s at block %d tx %s", event.Signature, event.BlockNumber, event.TxHash.Hex())
		w.eventLog.Add(event)
	})
}

var _ interfaces.Runnable = (*EventWatcher)(nil)
