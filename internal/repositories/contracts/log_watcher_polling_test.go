package contracts

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/Lumerin-protocol/proposal-verifier/internal/lib"
	"github.com/Lumerin-protocol/proposal-verifier/internal/sighash"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var (
	voteAddr           = common.HexToAddress("0x60EbdC73d89a9f02D1cA0EbcD842650873c4dec2")
	startVoteSig       = "StartVote(uint256,address,string)"
	executeVoteSig     = "ExecuteVote(uint256)"
	startVoteTopic     = sighash.DeriveTopic(startVoteSig)
	executeVoteTopic   = sighash.DeriveTopic(executeVoteSig)
	unrelatedTopic     = sighash.DeriveTopic("Transfer(address,address,uint256)")
	errNodeUnavailable = errors.New("node unavailable")
)

// EthClientMock serves logs stored by block number, head grows by one block on every HeaderByNumber call
type EthClientMock struct {
	mu      sync.Mutex
	head    uint64
	logs    map[uint64][]types.Log
	queries []ethereum.FilterQuery

	headErrs   int // number of HeaderByNumber calls that fail before succeeding
	headCalled int
}

func NewEthClientMock(head uint64) *EthClientMock {
	return &EthClientMock{head: head, logs: make(map[uint64][]types.Log)}
}

func (m *EthClientMock) AddLog(log types.Log) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[log.BlockNumber] = append(m.logs[log.BlockNumber], log)
}

func (m *EthClientMock) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.headCalled++
	if m.headErrs > 0 {
		m.headErrs--
		return nil, errNodeUnavailable
	}
	h := m.head
	m.head++
	return &types.Header{Number: new(big.Int).SetUint64(h)}, nil
}

func (m *EthClientMock) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queries = append(m.queries, q)

	var res []types.Log
	for b := q.FromBlock.Uint64(); b <= q.ToBlock.Uint64(); b++ {
		res = append(res, m.logs[b]...)
	}
	return res, nil
}

func (m *EthClientMock) Queries() []ethereum.FilterQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ethereum.FilterQuery{}, m.queries...)
}

func newTestWatcher(client EthereumClient, maxReconnects int) *LogWatcherPolling {
	w := NewLogWatcherPolling(client, 5*time.Millisecond, maxReconnects, lib.NewTestLogger())
	w.SetRetryInterval(time.Millisecond)
	return w
}

func TestWatchDeliversMatchingEvents(t *testing.T) {
	client := NewEthClientMock(10)
	client.AddLog(types.Log{Address: voteAddr, BlockNumber: 10, Topics: []common.Hash{startVoteTopic}, Index: 0})
	client.AddLog(types.Log{Address: voteAddr, BlockNumber: 11, Topics: []common.Hash{unrelatedTopic}, Index: 0})
	client.AddLog(types.Log{Address: voteAddr, BlockNumber: 11, Topics: []common.Hash{executeVoteTopic}, Index: 1, Removed: true})
	client.AddLog(types.Log{Address: voteAddr, BlockNumber: 12, Topics: []common.Hash{executeVoteTopic}, Index: 2, Data: []byte{0x01}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventLog := NewEventLog(16)
	w := newTestWatcher(client, 3)

	errCh := make(chan error, 1)
	go func() {
		errCh <- NewEventWatcher(w, voteAddr, []string{startVoteSig, executeVoteSig}, big.NewInt(10), eventLog).Run(ctx)
	}()

	require.Eventually(t, func() bool { return eventLog.Len() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	events := eventLog.Last(0)
	require.Len(t, events, 2)
	require.Equal(t, executeVoteSig, events[0].Signature)
	require.Equal(t, uint64(12), events[0].BlockNumber)
	require.Equal(t, []byte{0x01}, []byte(events[0].Data))
	require.Equal(t, startVoteSig, events[1].Signature)
	require.Equal(t, startVoteTopic, events[1].Topic)

	queries := client.Queries()
	require.NotEmpty(t, queries)
	require.Equal(t, [][]common.Hash{{startVoteTopic, executeVoteTopic}}, queries[0].Topics)
	require.Equal(t, []common.Address{voteAddr}, queries[0].Addresses)

	// block ranges are contiguous and do not overlap
	for i := 1; i < len(queries); i++ {
		require.Equal(t, queries[i-1].ToBlock.Uint64()+1, queries[i].FromBlock.Uint64())
	}
}

func TestWatchStartsFromLatestBlock(t *testing.T) {
	client := NewEthClientMock(100)
	client.AddLog(types.Log{Address: voteAddr, BlockNumber: 50, Topics: []common.Hash{startVoteTopic}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := newTestWatcher(client, 3)
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Watch(ctx, voteAddr, []string{startVoteSig}, nil, func(WatchedEvent) {
			t.Error("old event must not be delivered")
		})
	}()

	require.Eventually(t, func() bool { return len(client.Queries()) > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	require.GreaterOrEqual(t, client.Queries()[0].FromBlock.Uint64(), uint64(100))
}

func TestWatchRetriesTransientErrors(t *testing.T) {
	client := NewEthClientMock(1)
	client.headErrs = 2
	client.AddLog(types.Log{Address: voteAddr, BlockNumber: 1, Topics: []common.Hash{startVoteTopic}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan WatchedEvent, 1)
	w := newTestWatcher(client, 3)
	go func() {
		_ = w.Watch(ctx, voteAddr, []string{startVoteSig}, big.NewInt(1), func(e WatchedEvent) { received <- e })
	}()

	select {
	case e := <-received:
		require.Equal(t, startVoteSig, e.Signature)
	case <-time.After(time.Second):
		t.Fatal("expected event after reconnect")
	}
}

func TestWatchGivesUpAfterMaxReconnects(t *testing.T) {
	client := NewEthClientMock(1)
	client.headErrs = 100

	w := newTestWatcher(client, 3)
	err := w.Watch(context.Background(), voteAddr, []string{startVoteSig}, nil, func(WatchedEvent) {})

	require.ErrorIs(t, err, errNodeUnavailable)
	require.Equal(t, 3, client.headCalled)
}

func TestWatchValidatesSignatures(t *testing.T) {
	w := newTestWatcher(NewEthClientMock(1), 1)

	err := w.Watch(context.Background(), voteAddr, nil, nil, func(WatchedEvent) {})
	require.ErrorIs(t, err, ErrNoEvents)

	err = w.Watch(context.Background(), voteAddr, []string{"Broken("}, nil, func(WatchedEvent) {})
	require.ErrorIs(t, err, sighash.ErrMalformedSignature)
}
