package solana

import (
	"context"
	"errors"
)

// RPC errors. HTTPClient wraps these so adapters can map them onto their own taxonomy.
var (
	// ErrRateLimited is returned when the endpoint keeps answering 429.
	ErrRateLimited = errors.New("rpc rate limited")

	// ErrUnavailable is a transport failure or unexpected HTTP status.
	ErrUnavailable = errors.New("rpc unavailable")

	// ErrInvalidResponse is a response that could not be decoded.
	ErrInvalidResponse = errors.New("rpc invalid response")
)

// RPCClient defines the Solana RPC methods used for token inspection.
type RPCClient interface {
	// GetAccountInfo returns the account or nil when it does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}
