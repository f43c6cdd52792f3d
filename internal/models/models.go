package models

import (
	"time"

	"zuripay/internal/assets"
)

// PaymentStatus represents the state of a payment in its lifecycle.
type PaymentStatus string

const (
	StatusCreated           PaymentStatus = "CREATED"
	StatusWaitingForFunding PaymentStatus = "WAITING_FOR_FUNDING"
	StatusFunded            PaymentStatus = "FUNDED"
	StatusZecBurned         PaymentStatus = "ZEC_BURNED"
	StatusIntentPosted      PaymentStatus = "INTENT_POSTED"
	StatusPaid              PaymentStatus = "PAID"
	StatusError             PaymentStatus = "ERROR"
)

// StatusZecCollected is the public-facing alias for StatusZecBurned. The
// internal state machine keeps the distinct state; only API projections use it.
const StatusZecCollected PaymentStatus = "ZEC_COLLECTED"

// Terminal reports whether no further transitions are possible from s.
func (s PaymentStatus) Terminal() bool {
	return s == StatusPaid || s == StatusError
}

// rank orders the lifecycle states for the monotonic-transition guard.
// ZEC_BURNED may be skipped under the intent-only burn policy.
var rank = map[PaymentStatus]int{
	StatusCreated:           0,
	StatusWaitingForFunding: 1,
	StatusFunded:            2,
	StatusZecBurned:         3,
	StatusIntentPosted:      4,
	StatusPaid:              5,
}

// CanTransition reports whether moving from -> to respects the lifecycle order.
// ERROR is reachable from any non-terminal state.
func CanTransition(from, to PaymentStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusError {
		return true
	}
	rf, okf := rank[from]
	rt, okt := rank[to]
	return okf && okt && rt > rf
}

// Payment is the aggregate root for a single cross-chain payment.
type Payment struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`

	// Funding side.
	PayAsset             assets.Asset `json:"-"`
	PayAssetSymbol       string       `json:"payAsset"`
	FundingAmount        string       `json:"fundingAmount"`
	FundingAmountWithFee string       `json:"fundingAmountWithFee"`
	Fee                  string       `json:"fee"`
	CollectorAddress     string       `json:"collectorAddress"`
	FundingTxRef         string       `json:"fundingTxHash,omitempty"`

	// Destination side.
	DestAsset       assets.Asset `json:"-"`
	DestAssetSymbol string       `json:"destAsset"`
	DestAmount      string       `json:"destAmount"`
	DestDecimals    int32        `json:"destDecimals"`
	DestChain       string       `json:"destChain"`

	// Settlement artifacts, populated as the payment advances.
	BurnTxRef         string `json:"zcashBurnTxId,omitempty"`
	IntentID          string `json:"nearIntentId,omitempty"`
	IntentLedgerTxRef string `json:"nearIntentTxHash,omitempty"`
	PayoutTxRef       string `json:"payoutTxHash,omitempty"`

	Status PaymentStatus `json:"status"`
	Error  string        `json:"error,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Intent is a fulfillment intent as recorded on the ledger. The ledger owns
// these records; payments keep only the back-reference via IntentID.
type Intent struct {
	ID           string `json:"id"`
	PaymentID    string `json:"payment_id"`
	DestChain    string `json:"dest_chain"`
	DestAsset    string `json:"dest_asset"`
	DestAddress  string `json:"dest_address"`
	AmountAtomic string `json:"amount_atomic"`
	Decimals     int32  `json:"decimals"`
	BurnTxRef    string `json:"zcash_burn_txid"`
	CreatedAt    int64  `json:"created_at"`
	Fulfilled    bool   `json:"fulfilled"`
	PayoutTxRef  string `json:"payout_tx_hash,omitempty"`
}
