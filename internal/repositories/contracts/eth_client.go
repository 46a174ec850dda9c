package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EthereumClient is the subset of ethclient used by the watcher
type EthereumClient interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// EthClient is the node connection used in production
type EthClient struct {
	*ethclient.Client
}

func DialContext(ctx context.Context, urlString string) (*EthClient, error) {
	client, err := ethclient.DialContext(ctx, urlString)
	if err != nil {
		return nil, err
	}
	return &EthClient{Client: client}, nil
}

var _ EthereumClient = (*EthClient)(nil)
