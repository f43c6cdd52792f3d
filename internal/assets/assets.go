package assets

import (
	"fmt"
)

// ChainFamily groups chains by the client stack used to talk to them.
type ChainFamily string

const (
	FamilyEthereum ChainFamily = "ethereum"
	FamilySolana   ChainFamily = "solana"
)

// Asset is the closed set of assets the service can collect or pay out.
// Unsupported symbols are rejected when requests are parsed, not deep in a loop.
type Asset int

const (
	ETH Asset = iota
	USDCEth
	SOL
	USDCSol
)

// Info describes the on-chain representation of an asset.
type Info struct {
	Symbol       string
	Family       ChainFamily
	Decimals     int32
	DefaultChain string
}

var table = map[Asset]Info{
	ETH:     {Symbol: "ETH", Family: FamilyEthereum, Decimals: 18, DefaultChain: "ethereum-sepolia"},
	USDCEth: {Symbol: "USDC", Family: FamilyEthereum, Decimals: 6, DefaultChain: "ethereum-sepolia"},
	SOL:     {Symbol: "SOL", Family: FamilySolana, Decimals: 9, DefaultChain: "solana-devnet"},
	USDCSol: {Symbol: "USDC_SOL", Family: FamilySolana, Decimals: 6, DefaultChain: "solana-devnet"},
}

var bySymbol = map[string]Asset{
	"ETH":      ETH,
	"USDC":     USDCEth,
	"USDC_ETH": USDCEth,
	"SOL":      SOL,
	"USDC_SOL": USDCSol,
}

var familyByChain = map[string]ChainFamily{
	"ethereum-sepolia": FamilyEthereum,
	"ethereum":         FamilyEthereum,
	"solana-devnet":    FamilySolana,
	"solana":           FamilySolana,
}

// Parse resolves an asset symbol to its variant.
func Parse(symbol string) (Asset, error) {
	a, ok := bySymbol[symbol]
	if !ok {
		return 0, fmt.Errorf("unsupported asset %q", symbol)
	}
	return a, nil
}

// Info returns the table entry for the asset.
func (a Asset) Info() Info {
	return table[a]
}

// Symbol returns the canonical symbol for the asset.
func (a Asset) Symbol() string {
	return table[a].Symbol
}

func (a Asset) String() string {
	return a.Symbol()
}

// FamilyForChain maps a destination chain identifier to its client family.
func FamilyForChain(chain string) (ChainFamily, error) {
	f, ok := familyByChain[chain]
	if !ok {
		return "", fmt.Errorf("unsupported destination chain %q", chain)
	}
	return f, nil
}
