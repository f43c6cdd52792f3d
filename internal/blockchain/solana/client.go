package solana

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"zuripay/internal/assets"
	"zuripay/internal/blockchain"
)

// Client wraps a Solana RPC connection for deposit verification and payout
// submission.
type Client struct {
	rpcClient *rpc.Client
	payer     solana.PrivateKey
	hasPayer  bool
	logger    *zap.Logger
}

// NewClient connects to the RPC endpoint. The solver private key is optional;
// without it the client can verify deposits but not send payouts.
func NewClient(rpcURL, solverPrivateKey string, logger *zap.Logger) (*Client, error) {
	c := &Client{
		rpcClient: rpc.New(rpcURL),
		logger:    logger.Named("solana"),
	}

	if solverPrivateKey != "" {
		payer, err := solana.PrivateKeyFromBase58(solverPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse solver private key: %w", err)
		}
		c.payer = payer
		c.hasPayer = true
		c.logger.Info("Solana client initialized", zap.String("solver_address", payer.PublicKey().String()))
	}

	return c, nil
}

// VerifyDeposit checks that the transaction moved at least the expected
// amount of lamports to the collector, using the collector's balance delta.
// A transaction the RPC does not know yet is "not yet", not an error.
func (c *Client) VerifyDeposit(ctx context.Context, txRef, collector, expectedAmount string, asset assets.Asset) (bool, error) {
	sig, err := solana.SignatureFromBase58(txRef)
	if err != nil {
		return false, fmt.Errorf("%w: %q: %v", blockchain.ErrInvalidTxRef, txRef, err)
	}
	collectorKey, err := solana.PublicKeyFromBase58(collector)
	if err != nil {
		return false, fmt.Errorf("invalid collector address %q: %w", collector, err)
	}
	expected, err := assets.ToAtomic(expectedAmount, asset.Info().Decimals)
	if err != nil {
		return false, fmt.Errorf("invalid expected amount %q: %w", expectedAmount, err)
	}

	result, err := c.rpcClient.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentFinalized,
	})
	if err != nil || result == nil {
		return false, nil
	}
	if result.Meta == nil || result.Meta.Err != nil {
		return false, nil
	}

	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return false, fmt.Errorf("failed to decode transaction: %w", err)
	}

	collectorIdx := -1
	for i, key := range tx.Message.AccountKeys {
		if key.Equals(collectorKey) {
			collectorIdx = i
			break
		}
	}
	if collectorIdx < 0 {
		return false, nil
	}
	if collectorIdx >= len(result.Meta.PreBalances) || collectorIdx >= len(result.Meta.PostBalances) {
		return false, nil
	}

	pre := new(big.Int).SetUint64(result.Meta.PreBalances[collectorIdx])
	post := new(big.Int).SetUint64(result.Meta.PostBalances[collectorIdx])
	delta := new(big.Int).Sub(post, pre)

	return delta.Cmp(expected) >= 0, nil
}

// SendPayout submits a native SOL transfer to the destination address and
// returns the transaction signature. SPL token payouts are not implemented;
// asking for one is a permanent failure, not a retryable one.
func (c *Client) SendPayout(ctx context.Context, destAddress, amount string, asset assets.Asset) (string, error) {
	if !c.hasPayer {
		return "", fmt.Errorf("solver private key not configured")
	}
	if asset != assets.SOL {
		return "", fmt.Errorf("%w: %s on solana (SPL transfers not implemented)", blockchain.ErrUnsupportedAsset, asset.Symbol())
	}

	dest, err := solana.PublicKeyFromBase58(destAddress)
	if err != nil {
		return "", fmt.Errorf("invalid destination address %q: %w", destAddress, err)
	}
	atomic, err := assets.ToAtomic(amount, asset.Info().Decimals)
	if err != nil {
		return "", fmt.Errorf("invalid payout amount %q: %w", amount, err)
	}
	if !atomic.IsUint64() {
		return "", fmt.Errorf("payout amount %q exceeds lamport range", amount)
	}

	recent, err := c.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(atomic.Uint64(), c.payer.PublicKey(), dest).Build(),
		},
		recent.Value.Blockhash,
		solana.TransactionPayer(c.payer.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.payer.PublicKey()) {
			return &c.payer
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.rpcClient.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.Info("Payout sent",
		zap.String("signature", sig.String()),
		zap.String("to", dest.String()),
		zap.String("amount", amount))

	return sig.String(), nil
}

// NewCollectorAddress generates a fresh wallet and returns its public key as
// the single-use deposit target.
func (c *Client) NewCollectorAddress(_ context.Context, paymentID string) (string, error) {
	wallet := solana.NewWallet()

	c.logger.Info("Collector address allocated",
		zap.String("payment_id", paymentID),
		zap.String("address", wallet.PublicKey().String()))

	return wallet.PublicKey().String(), nil
}
