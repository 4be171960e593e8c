package domain

import (
	"math"
	"strings"
)

// Preset ID constants
const (
	PresetAnalytic     = "analytic"
	PresetNoLiquidity  = "no-liquidity"
	PresetFeeOnly      = "fee-only"
	PresetSweepDefault = "sweep-default"
)

// Predefined network configurations used by the experiment commands.
var (
	// PresetConfigAnalytic is the liquidity-assumed, fee-only network whose
	// relay mean balance must track the closed-form expectation.
	PresetConfigAnalytic = NetworkConfig{
		DefaultBalanceClientRelayChannelClient: 0,
		DefaultBalanceClientRelayChannelRelay:  0,
		DefaultBalanceRelayRelayChannel:        0,
		ChannelCost:                            1,
		RelayTransactionFee:                    100,
		TransactionProportionalFee:             0,
		HopsNumber:                             3,
		IsLiquidityAssumed:                     true,
		NumberOfRelays:                         100,
		NumberOfClients:                        10000,
		NumberOfRelaysPerClient:                1,
	}

	// PresetConfigNoLiquidity funds clients without bound so that failures
	// come only from relay-side liquidity.
	PresetConfigNoLiquidity = NetworkConfig{
		DefaultBalanceClientRelayChannelClient: math.Inf(1),
		DefaultBalanceClientRelayChannelRelay:  20,
		DefaultBalanceRelayRelayChannel:        20,
		ChannelCost:                            1,
		RelayTransactionFee:                    0.1,
		TransactionProportionalFee:             0,
		HopsNumber:                             3,
		IsLiquidityAssumed:                     false,
		NumberOfRelays:                         20,
		NumberOfClients:                        10000,
		NumberOfRelaysPerClient:                10,
	}

	// PresetConfigFeeOnly is a small liquidity-assumed network for quick
	// analytic-vs-simulated comparisons.
	PresetConfigFeeOnly = NetworkConfig{
		ChannelCost:             1,
		RelayTransactionFee:     0.1,
		HopsNumber:              3,
		IsLiquidityAssumed:      true,
		NumberOfRelays:          10,
		NumberOfClients:         10000,
		NumberOfRelaysPerClient: 1,
	}

	// PresetConfigSweepDefault is the base network of the parameter sweep.
	// Channel balances and the proportional fee are overridden per grid cell.
	PresetConfigSweepDefault = NetworkConfig{
		DefaultBalanceClientRelayChannelClient: 1e6,
		DefaultBalanceClientRelayChannelRelay:  1e6,
		DefaultBalanceRelayRelayChannel:        1e6,
		ChannelCost:                            44e3,
		RelayTransactionFee:                    0,
		TransactionProportionalFee:             0.01,
		HopsNumber:                             3,
		IsLiquidityAssumed:                     false,
		NumberOfRelays:                         50,
		NumberOfClients:                        5000,
		NumberOfRelaysPerClient:                1,
	}
)

// PresetByName returns the predefined network config by name.
func PresetByName(name string) (NetworkConfig, bool) {
	switch strings.ToLower(name) {
	case PresetAnalytic:
		return PresetConfigAnalytic, true
	case PresetNoLiquidity:
		return PresetConfigNoLiquidity, true
	case PresetFeeOnly:
		return PresetConfigFeeOnly, true
	case PresetSweepDefault:
		return PresetConfigSweepDefault, true
	default:
		return NetworkConfig{}, false
	}
}
