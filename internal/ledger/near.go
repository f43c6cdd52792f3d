package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"zuripay/internal/models"
)

// NearLedger talks to the intent contract on NEAR. View methods go straight to
// the NEAR JSON-RPC node; change methods go through a signer sidecar that holds
// the orchestrator key and submits the transaction (the same sidecar pattern
// the zcash light client uses).
type NearLedger struct {
	nodeURL    string
	contractID string
	signerURL  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewNearLedger creates a ledger client for the given contract.
func NewNearLedger(nodeURL, contractID, signerURL string, logger *zap.Logger) *NearLedger {
	return &NearLedger{
		nodeURL:    nodeURL,
		contractID: contractID,
		signerURL:  signerURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.Named("near"),
	}
}

// rpcRequest is the JSON-RPC envelope the NEAR node expects.
type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type callFunctionParams struct {
	RequestType string `json:"request_type"`
	Finality    string `json:"finality"`
	AccountID   string `json:"account_id"`
	MethodName  string `json:"method_name"`
	ArgsBase64  string `json:"args_base64"`
}

type rpcResponse struct {
	Result *callFunctionResult `json:"result"`
	Error  *rpcError           `json:"error"`
}

// callFunctionResult.Result is the raw return value of the view call as a
// byte array (the node encodes it as a JSON array of numbers).
type callFunctionResult struct {
	Result []byte `json:"-"`
	Logs   []string
}

func (r *callFunctionResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Result []int    `json:"result"`
		Logs   []string `json:"logs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Result = make([]byte, len(raw.Result))
	for i, b := range raw.Result {
		r.Result[i] = byte(b)
	}
	r.Logs = raw.Logs
	return nil
}

type rpcError struct {
	Name  string          `json:"name"`
	Cause json.RawMessage `json:"cause"`
}

// viewFunction invokes a read-only contract method and decodes its JSON
// return value into out.
func (l *NearLedger) viewFunction(ctx context.Context, method string, args, out interface{}) error {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode args: %w", err)
	}

	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      "zuripay",
		Method:  "query",
		Params: callFunctionParams{
			RequestType: "call_function",
			Finality:    "final",
			AccountID:   l.contractID,
			MethodName:  method,
			ArgsBase64:  base64.StdEncoding.EncodeToString(argsJSON),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.nodeURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("near rpc call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("near rpc returned status %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("near rpc error: %s", rpcResp.Error.Name)
	}
	if rpcResp.Result == nil {
		return fmt.Errorf("near rpc response missing result")
	}

	if err := json.Unmarshal(rpcResp.Result.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

// changeCall submits a state-changing contract call through the signer sidecar.
type changeCallRequest struct {
	ContractID string          `json:"contractId"`
	Method     string          `json:"method"`
	Args       json.RawMessage `json:"args"`
}

type changeCallResponse struct {
	TxHash string `json:"txHash"`
}

func (l *NearLedger) changeCall(ctx context.Context, method string, args interface{}) (string, error) {
	if l.signerURL == "" {
		return "", fmt.Errorf("near signer sidecar not configured")
	}

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode args: %w", err)
	}
	body, err := json.Marshal(changeCallRequest{
		ContractID: l.contractID,
		Method:     method,
		Args:       argsJSON,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.signerURL+"/call", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("near signer call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("near signer returned status %d", resp.StatusCode)
	}

	var callResp changeCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&callResp); err != nil {
		return "", fmt.Errorf("failed to decode signer response: %w", err)
	}
	if callResp.TxHash == "" {
		return "", fmt.Errorf("near signer response missing txHash")
	}
	return callResp.TxHash, nil
}

// intentInput matches the contract's create_intent argument shape, which
// carries numeric fields as strings.
type intentInput struct {
	Intent intentPayload `json:"intent"`
}

type intentPayload struct {
	ID           string  `json:"id"`
	PaymentID    string  `json:"payment_id"`
	DestChain    string  `json:"dest_chain"`
	DestAsset    string  `json:"dest_asset"`
	DestAddress  string  `json:"dest_address"`
	AmountAtomic string  `json:"amount_atomic"`
	Decimals     int32   `json:"decimals"`
	BurnTxRef    string  `json:"zcash_burn_txid"`
	CreatedAt    string  `json:"created_at"`
	Fulfilled    bool    `json:"fulfilled"`
	PayoutTxRef  *string `json:"payout_tx_hash"`
}

// CreateIntent publishes the intent on chain via the signer sidecar.
func (l *NearLedger) CreateIntent(ctx context.Context, intent models.Intent) (string, error) {
	txHash, err := l.changeCall(ctx, "create_intent", intentInput{
		Intent: intentPayload{
			ID:           intent.ID,
			PaymentID:    intent.PaymentID,
			DestChain:    intent.DestChain,
			DestAsset:    intent.DestAsset,
			DestAddress:  intent.DestAddress,
			AmountAtomic: intent.AmountAtomic,
			Decimals:     intent.Decimals,
			BurnTxRef:    intent.BurnTxRef,
			CreatedAt:    fmt.Sprintf("%d", intent.CreatedAt),
			Fulfilled:    false,
		},
	})
	if err != nil {
		return "", err
	}

	l.logger.Info("Intent posted on NEAR",
		zap.String("intent_id", intent.ID),
		zap.String("tx_hash", txHash))
	return txHash, nil
}

// nearIntent matches the contract's stored intent shape.
type nearIntent struct {
	ID           string      `json:"id"`
	PaymentID    string      `json:"payment_id"`
	DestChain    string      `json:"dest_chain"`
	DestAsset    string      `json:"dest_asset"`
	DestAddress  string      `json:"dest_address"`
	AmountAtomic json.Number `json:"amount_atomic"`
	Decimals     int32       `json:"decimals"`
	BurnTxRef    string      `json:"zcash_burn_txid"`
	CreatedAt    json.Number `json:"created_at"`
	Fulfilled    bool        `json:"fulfilled"`
	PayoutTxRef  *string     `json:"payout_tx_hash"`
}

func (n nearIntent) toModel() models.Intent {
	createdAt, _ := n.CreatedAt.Int64()
	intent := models.Intent{
		ID:           n.ID,
		PaymentID:    n.PaymentID,
		DestChain:    n.DestChain,
		DestAsset:    n.DestAsset,
		DestAddress:  n.DestAddress,
		AmountAtomic: n.AmountAtomic.String(),
		Decimals:     n.Decimals,
		BurnTxRef:    n.BurnTxRef,
		CreatedAt:    createdAt,
		Fulfilled:    n.Fulfilled,
	}
	if n.PayoutTxRef != nil {
		intent.PayoutTxRef = *n.PayoutTxRef
	}
	return intent
}

// ListOpenIntents queries the contract's list_open_intents view.
func (l *NearLedger) ListOpenIntents(ctx context.Context) ([]models.Intent, error) {
	var raw []nearIntent
	if err := l.viewFunction(ctx, "list_open_intents", map[string]interface{}{}, &raw); err != nil {
		return nil, err
	}
	intents := make([]models.Intent, 0, len(raw))
	for _, n := range raw {
		intents = append(intents, n.toModel())
	}
	return intents, nil
}

// MarkFulfilled records the payout on chain via the signer sidecar.
func (l *NearLedger) MarkFulfilled(ctx context.Context, id, payoutTxRef string) error {
	_, err := l.changeCall(ctx, "mark_fulfilled", map[string]string{
		"id":             id,
		"payout_tx_hash": payoutTxRef,
	})
	return err
}

// GetIntent queries the contract's get_intent view.
func (l *NearLedger) GetIntent(ctx context.Context, id string) (*models.Intent, error) {
	var raw *nearIntent
	if err := l.viewFunction(ctx, "get_intent", map[string]string{"id": id}, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrIntentNotFound
	}
	intent := raw.toModel()
	return &intent, nil
}
