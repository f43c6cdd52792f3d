package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"zuripay/internal/assets"
	"zuripay/internal/blockchain"
)

// transferEventSig is keccak256("Transfer(address,address,uint256)").
var transferEventSig = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

// amountTolerance absorbs wallet rounding on native transfers.
var amountTolerance = decimal.RequireFromString("0.0001")

// Client wraps an Ethereum RPC connection for deposit verification and
// payout submission.
type Client struct {
	ethClient    *ethclient.Client
	usdcContract common.Address
	privateKey   *ecdsa.PrivateKey
	fromAddress  common.Address
	logger       *zap.Logger
}

// NewClient connects to the RPC endpoint. The solver private key is optional;
// without it the client can verify deposits but not send payouts.
func NewClient(rpcURL, usdcContract, solverPrivateKey string, logger *zap.Logger) (*Client, error) {
	ethClient, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint %s: %w", rpcURL, err)
	}

	c := &Client{
		ethClient:    ethClient,
		usdcContract: common.HexToAddress(usdcContract),
		logger:       logger.Named("evm"),
	}

	if solverPrivateKey != "" {
		privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(solverPrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse solver private key: %w", err)
		}
		publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("failed to cast public key to ECDSA")
		}
		c.privateKey = privateKey
		c.fromAddress = crypto.PubkeyToAddress(*publicKey)
		c.logger.Info("EVM client initialized", zap.String("solver_address", c.fromAddress.Hex()))
	}

	return c, nil
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	c.ethClient.Close()
}

// VerifyDeposit checks that txRef is a confirmed transaction paying at least
// the expected amount of the asset to the collector address. An unmined or
// unknown transaction is "not yet", not an error.
func (c *Client) VerifyDeposit(ctx context.Context, txRef, collector, expectedAmount string, asset assets.Asset) (bool, error) {
	txHash := common.HexToHash(txRef)

	tx, pending, err := c.ethClient.TransactionByHash(ctx, txHash)
	if err != nil || pending {
		return false, nil
	}

	receipt, err := c.ethClient.TransactionReceipt(ctx, txHash)
	if err != nil || receipt == nil {
		return false, nil
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return false, nil
	}

	collectorAddr := common.HexToAddress(collector)
	info := asset.Info()

	if asset == assets.ETH {
		if tx.To() == nil || *tx.To() != collectorAddr {
			return false, nil
		}
		actual := decimal.NewFromBigInt(tx.Value(), -info.Decimals)
		expected, err := decimal.NewFromString(expectedAmount)
		if err != nil {
			return false, fmt.Errorf("invalid expected amount %q: %w", expectedAmount, err)
		}
		return actual.Sub(expected).Abs().LessThanOrEqual(amountTolerance), nil
	}

	// ERC20 deposits: look for a Transfer to the collector in the receipt logs.
	expected, err := assets.ToAtomic(expectedAmount, info.Decimals)
	if err != nil {
		return false, fmt.Errorf("invalid expected amount %q: %w", expectedAmount, err)
	}
	received := new(big.Int)
	for _, log := range receipt.Logs {
		if log.Address != c.usdcContract || len(log.Topics) != 3 {
			continue
		}
		if log.Topics[0] != transferEventSig {
			continue
		}
		if common.BytesToAddress(log.Topics[2].Bytes()) != collectorAddr {
			continue
		}
		received.Add(received, new(big.Int).SetBytes(log.Data))
	}
	return received.Cmp(expected) >= 0, nil
}

// SendPayout signs and broadcasts a payout to the destination address and
// returns the transaction hash. ETH goes out as a native value transfer,
// USDC as an ERC20 transfer call on the configured contract.
func (c *Client) SendPayout(ctx context.Context, destAddress, amount string, asset assets.Asset) (string, error) {
	if c.privateKey == nil {
		return "", fmt.Errorf("solver private key not configured")
	}
	if asset != assets.ETH && asset != assets.USDCEth {
		return "", fmt.Errorf("%w: %s on ethereum", blockchain.ErrUnsupportedAsset, asset.Symbol())
	}

	value, err := assets.ToAtomic(amount, asset.Info().Decimals)
	if err != nil {
		return "", fmt.Errorf("invalid payout amount %q: %w", amount, err)
	}

	chainID, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get chain ID: %w", err)
	}
	nonce, err := c.ethClient.PendingNonceAt(ctx, c.fromAddress)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := c.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to suggest gas price: %w", err)
	}

	to := common.HexToAddress(destAddress)
	var tx *types.Transaction
	if asset == assets.ETH {
		tx = types.NewTransaction(nonce, to, value, 21000, gasPrice, nil)
	} else {
		data := erc20TransferData(to, value)
		tx = types.NewTransaction(nonce, c.usdcContract, big.NewInt(0), 65000, gasPrice, data)
	}

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), c.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := c.ethClient.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.Info("Payout sent",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.String("amount", amount),
		zap.String("asset", asset.Symbol()))

	return signedTx.Hash().Hex(), nil
}

// erc20TransferData builds calldata for transfer(address,uint256).
func erc20TransferData(to common.Address, amount *big.Int) []byte {
	methodID := crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]
	data := make([]byte, 0, 4+32+32)
	data = append(data, methodID...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}

// NewCollectorAddress generates a fresh keypair and returns its address as the
// single-use deposit target. Key custody is out of scope for this service; the
// generated key is logged for the operator's sweep tooling.
func (c *Client) NewCollectorAddress(_ context.Context, paymentID string) (string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate collector key: %w", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)

	c.logger.Info("Collector address allocated",
		zap.String("payment_id", paymentID),
		zap.String("address", addr.Hex()))

	return addr.Hex(), nil
}
