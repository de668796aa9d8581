// Package chain wraps the Solana JSON-RPC client used by the wallet service.
// Read-only queries retry transient failures; transaction broadcast is never
// retried automatically since resubmitting a signed transaction is not safe
// to assume idempotent across blockhash expiry.
package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/mosaiclabs/soltss/pkg/types"
)

var (
	ErrUnsupportedNetwork = errors.New("chain: unsupported network")
	ErrTransactionFailed  = errors.New("chain: transaction failed on chain")
)

const (
	readAttempts = 3
	readDelay    = 200 * time.Millisecond

	confirmAttempts = 30
	confirmDelay    = time.Second
)

// Client is a thin wrapper over one cluster's RPC endpoint.
type Client struct {
	rpc     *rpc.Client
	network types.Network
	logger  zerolog.Logger
}

// Dial connects to the public endpoint for the given network.
func Dial(network types.Network, logger zerolog.Logger) (*Client, error) {
	endpoint := types.RPCEndpoint(network)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNetwork, network)
	}
	return &Client{
		rpc:     rpc.New(endpoint),
		network: network,
		logger:  logger.With().Str("network", string(network)).Logger(),
	}, nil
}

func (c *Client) Network() types.Network { return c.network }

func (c *Client) retryRead(ctx context.Context, op string, fn func() error) error {
	err := retry.Do(fn,
		retry.Attempts(readAttempts),
		retry.Delay(readDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		c.logger.Warn().Err(err).Str("op", op).Msg("RPC read failed")
	}
	return err
}

// Balance returns the lamport balance of an account.
func (c *Client) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var out uint64
	err := c.retryRead(ctx, "getBalance", func() error {
		res, err := c.rpc.GetBalance(ctx, account, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		out = res.Value
		return nil
	})
	return out, err
}

// RequestAirdrop asks the cluster faucet for lamports. Mainnet has no faucet;
// the RPC node reports that as an error.
func (c *Client) RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64) (solana.Signature, error) {
	sig, err := c.rpc.RequestAirdrop(ctx, account, lamports, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Airdrop request failed")
		return solana.Signature{}, err
	}
	return sig, nil
}

// LatestBlockhash fetches a recent blockhash for transaction assembly.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var out solana.Hash
	err := c.retryRead(ctx, "getLatestBlockhash", func() error {
		res, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		out = res.Value.Blockhash
		return nil
	})
	return out, err
}

// TokenBalance returns the raw token amount held by an SPL token account.
func (c *Client) TokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (string, uint8, error) {
	var (
		amount   string
		decimals uint8
	)
	err := c.retryRead(ctx, "getTokenAccountBalance", func() error {
		res, err := c.rpc.GetTokenAccountBalance(ctx, tokenAccount, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		amount = res.Value.Amount
		decimals = res.Value.Decimals
		return nil
	})
	return amount, decimals, err
}

// MinimumRentExemption returns the lamports needed to keep an account of the
// given size rent-exempt.
func (c *Client) MinimumRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	var out uint64
	err := c.retryRead(ctx, "getMinimumBalanceForRentExemption", func() error {
		lamports, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, dataSize, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		out = lamports
		return nil
	})
	return out, err
}

// ConfirmTransaction polls signature statuses until the cluster reports the
// transaction confirmed or finalized. A transaction that landed with an
// on-chain error stops the poll immediately.
func (c *Client) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	err := retry.Do(func() error {
		res, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return err
		}
		if len(res.Value) == 0 || res.Value[0] == nil {
			return fmt.Errorf("transaction %s not yet processed", sig)
		}
		status := res.Value[0]
		if status.Err != nil {
			return retry.Unrecoverable(fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err))
		}
		switch status.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return nil
		default:
			return fmt.Errorf("transaction %s awaiting confirmation", sig)
		}
	},
		retry.Attempts(confirmAttempts),
		retry.Delay(confirmDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		c.logger.Warn().Err(err).Str("signature", sig.String()).Msg("Transaction confirmation failed")
	}
	return err
}

// SendTransaction broadcasts a fully signed transaction. No retries; the
// caller decides whether resubmission is safe.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Transaction broadcast failed")
		return solana.Signature{}, err
	}
	c.logger.Info().Str("signature", sig.String()).Msg("Transaction broadcast")
	return sig, nil
}
