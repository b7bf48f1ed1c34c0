package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/agentalpha/signal-exchange/internal/metrics"
	"github.com/agentalpha/signal-exchange/internal/sighash"
)

const (
	defaultConfirmTimeout = 60 * time.Second
	confirmPollInterval   = 2 * time.Second
)

// Client submits marketplace instructions and reads program accounts. It
// holds a single local identity; multi-signer flows are not supported.
type Client struct {
	rpc            *rpc.Client
	wallet         solana.PrivateKey
	commitment     rpc.CommitmentType
	confirmTimeout time.Duration
	log            zerolog.Logger
}

// NewClient connects to the given RPC endpoint. Commitment accepts
// "processed", "confirmed" (default), or "finalized".
func NewClient(rpcURL string, wallet solana.PrivateKey, commitment string, log zerolog.Logger) *Client {
	c := rpc.CommitmentConfirmed
	switch commitment {
	case "processed":
		c = rpc.CommitmentProcessed
	case "finalized":
		c = rpc.CommitmentFinalized
	}
	return &Client{
		rpc:            rpc.New(rpcURL),
		wallet:         wallet,
		commitment:     c,
		confirmTimeout: defaultConfirmTimeout,
		log:            log.With().Str("component", "chain").Logger(),
	}
}

// Authority returns the public key of the local signing identity.
func (c *Client) Authority() solana.PublicKey {
	return c.wallet.PublicKey()
}

// RPC exposes the underlying connection for collaborators that read other
// on-chain state (the payment verifier fetches transactions through it).
func (c *Client) RPC() *rpc.Client {
	return c.rpc
}

// RegisterProvider creates the provider record for the local authority.
// Registering twice fails with ErrDuplicateRegistration; the existing record
// is untouched.
func (c *Client) RegisterProvider(ctx context.Context, name, endpoint string, categories []uint8, priceLamports uint64) (solana.Signature, error) {
	ix, err := buildRegisterProviderInstruction(c.Authority(), name, endpoint, categories, priceLamports)
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.submitAndConfirm(ctx, ix)
	if err != nil {
		return sig, classifyLedgerError(opRegister, err)
	}
	c.log.Info().Str("signature", sig.String()).Str("name", name).Msg("provider registered")
	return sig, nil
}

// UpdateProvider changes the mutable registry fields. Nil arguments leave the
// corresponding field untouched.
func (c *Client) UpdateProvider(ctx context.Context, name, endpoint *string, priceLamports *uint64) (solana.Signature, error) {
	ix, err := buildUpdateProviderInstruction(c.Authority(), name, endpoint, priceLamports)
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.submitAndConfirm(ctx, ix)
	if err != nil {
		return sig, classifyLedgerError(opRegister, err)
	}
	return sig, nil
}

// CommitSignal publishes the hash of a signal without revealing its content.
// Committing the same hash twice fails with ErrDuplicateCommit.
func (c *Client) CommitSignal(ctx context.Context, hash sighash.Hash) (solana.Signature, error) {
	ix, err := buildCommitSignalInstruction(c.Authority(), hash)
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.submitAndConfirm(ctx, ix)
	if err != nil {
		return sig, classifyLedgerError(opCommit, err)
	}
	metrics.SignalsCommitted.Inc()
	c.log.Info().Str("signature", sig.String()).Str("hash", hash.String()).Msg("signal committed")
	return sig, nil
}

// RevealSignal publishes the plaintext for a previously committed signal.
// The ledger recomputes the hash from the supplied fields and rejects the
// reveal with ErrHashMismatch when it differs from the committed value.
func (c *Client) RevealSignal(ctx context.Context, s sighash.Signal) (solana.Signature, error) {
	hash, _ := sighash.Compute(s)
	ix, err := buildRevealSignalInstruction(c.Authority(), s, hash)
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.submitAndConfirm(ctx, ix)
	if err != nil {
		return sig, classifyLedgerError(opReveal, err)
	}
	metrics.SignalsRevealed.Inc()
	c.log.Info().Str("signature", sig.String()).Str("hash", hash.String()).Msg("signal revealed")
	return sig, nil
}

// RecordOutcome submits an oracle evaluation for a revealed signal. The local
// identity must be the trusted oracle authority.
func (c *Client) RecordOutcome(ctx context.Context, providerPDA solana.PublicKey, hash sighash.Hash, outcome uint8, finalPriceCents uint64, returnBps int32) (solana.Signature, error) {
	ix, err := buildRecordOutcomeInstruction(c.Authority(), providerPDA, hash, outcome, finalPriceCents, returnBps)
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.submitAndConfirm(ctx, ix)
	if err != nil {
		return sig, classifyLedgerError(opOutcome, err)
	}
	return sig, nil
}

// GetProvider fetches and decodes the provider record for an authority.
func (c *Client) GetProvider(ctx context.Context, authority solana.PublicKey) (*Provider, error) {
	addr, _, err := DeriveProviderAddress(authority)
	if err != nil {
		return nil, fmt.Errorf("derive provider address: %w", err)
	}
	data, err := c.fetchAccount(ctx, addr)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, wrap(ErrProviderNotFound, err)
		}
		return nil, err
	}
	return DecodeProvider(addr, data)
}

// GetSignalCommit fetches and decodes the commit record for a (provider,
// hash) pair. Returns ErrCommitNotFound when no commit exists.
func (c *Client) GetSignalCommit(ctx context.Context, provider solana.PublicKey, hash sighash.Hash) (*SignalCommit, error) {
	addr, _, err := DeriveSignalCommitAddress(provider, hash)
	if err != nil {
		return nil, fmt.Errorf("derive commit address: %w", err)
	}
	data, err := c.fetchAccount(ctx, addr)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, wrap(ErrCommitNotFound, err)
		}
		return nil, err
	}
	return DecodeSignalCommit(addr, data)
}

// GetAllProviders scans every provider account owned by the program. A
// malformed account is logged and skipped; one corrupt record must not abort
// the whole scan.
func (c *Client) GetAllProviders(ctx context.Context) ([]*Provider, error) {
	resp, err := c.rpc.GetProgramAccountsWithOpts(ctx, ProgramID, &rpc.GetProgramAccountsOpts{
		Commitment: c.commitment,
		Filters: []rpc.RPCFilter{
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: 0,
					Bytes:  discProvider[:],
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get program accounts: %w", err)
	}

	providers := make([]*Provider, 0, len(resp))
	for _, item := range resp {
		data := item.Account.Data.GetBinary()
		if len(data) < 8 {
			c.log.Warn().Str("account", item.Pubkey.String()).Int("len", len(data)).Msg("skipping undersized provider account")
			continue
		}
		p, err := DecodeProvider(item.Pubkey, data)
		if err != nil {
			c.log.Warn().Err(err).Str("account", item.Pubkey.String()).Msg("skipping malformed provider account")
			continue
		}
		providers = append(providers, p)
	}
	return providers, nil
}

func (c *Client) fetchAccount(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	res, err := c.rpc.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{Commitment: c.commitment})
	if err != nil {
		return nil, err
	}
	if res == nil || res.Value == nil {
		return nil, rpc.ErrNotFound
	}
	return res.Value.Data.GetBinary(), nil
}

// submitAndConfirm signs and sends a single-instruction transaction, then
// blocks until the signature reaches the client's commitment level or the
// confirmation window lapses. Callers must not read freshly amended account
// state before this returns.
func (c *Client) submitAndConfirm(ctx context.Context, ix solana.Instruction) (solana.Signature, error) {
	recent, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		recent.Value.Blockhash,
		solana.TransactionPayer(c.Authority()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build transaction: %w", err)
	}

	if _, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.Authority()) {
			return &c.wallet
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, err
	}

	if err := c.waitForConfirmation(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

// waitForConfirmation polls signature status. Confirmation is eventually
// consistent on the ledger; multiple polling rounds are normal.
func (c *Client) waitForConfirmation(ctx context.Context, sig solana.Signature) error {
	deadline := time.Now().Add(c.confirmTimeout)
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		statuses, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err == nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
			st := statuses.Value[0]
			if st.Err != nil {
				return fmt.Errorf("transaction %s failed: %v", sig, st.Err)
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
		if err != nil {
			c.log.Debug().Err(err).Str("signature", sig.String()).Msg("status poll failed, retrying")
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("transaction %s not confirmed within %s", sig, c.confirmTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
