package zcash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LightClient burns through an HTTP sidecar that holds the shielded spending
// key and talks to lightwalletd. The service itself never sees key material.
type LightClient struct {
	baseURL     string
	apiKey      string
	burnAddress string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewLightClient creates a client for the sidecar at baseURL.
func NewLightClient(baseURL, apiKey, burnAddress string, logger *zap.Logger) *LightClient {
	return &LightClient{
		baseURL:     baseURL,
		apiKey:      apiKey,
		burnAddress: burnAddress,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		logger:      logger.Named("zcash"),
	}
}

type sendShieldedRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
	Memo   string `json:"memo,omitempty"`
}

type sendShieldedResponse struct {
	TxID  string `json:"txId"`
	Error string `json:"error,omitempty"`
}

// Burn asks the sidecar to send a shielded transaction to the burn address,
// tagging the memo with the payment id so the burn is attributable off-band.
func (c *LightClient) Burn(ctx context.Context, paymentID, amount string) (string, error) {
	body, err := json.Marshal(sendShieldedRequest{
		To:     c.burnAddress,
		Amount: amount,
		Memo:   "zuripay:" + paymentID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal burn request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send-shielded-tx", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build burn request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("burn request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read burn response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("burn sidecar returned status %d: %s", resp.StatusCode, string(raw))
	}

	var result sendShieldedResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to decode burn response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("burn sidecar error: %s", result.Error)
	}
	if result.TxID == "" {
		return "", fmt.Errorf("burn sidecar returned no txid")
	}

	c.logger.Info("Shielded burn recorded",
		zap.String("payment_id", paymentID),
		zap.String("txid", result.TxID),
		zap.String("amount", amount))

	return result.TxID, nil
}
