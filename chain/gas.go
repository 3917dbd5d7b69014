package chain

import "math"

// Fee defaults used by Provenance testnet and mainnet.
const (
	DefaultFeeAdjustment = 1.25
	DefaultGasPrice      = 1905.0
	DefaultFeeDenom      = "nhash"
)

// GasEstimate is a simulated gas figure together with the fee policy applied
// to it. The zero value yields a zero limit and fee, as used for simulation.
type GasEstimate struct {
	Estimate      uint64
	FeeAdjustment float64
	GasPrice      float64
}

// Limit is the gas limit, ceil(Estimate * FeeAdjustment).
func (g GasEstimate) Limit() uint64 {
	return uint64(math.Ceil(float64(g.Estimate) * g.FeeAdjustment))
}

// Fee is the fee amount in the fee denom, ceil(Limit * GasPrice).
func (g GasEstimate) Fee() uint64 {
	return uint64(math.Ceil(float64(g.Limit()) * g.GasPrice))
}
