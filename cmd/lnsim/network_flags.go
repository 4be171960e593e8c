package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/sampling"
)

// networkFlags are the NetworkConfig overrides shared by run and sweep.
func networkFlags(defaultPreset string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "preset",
			Aliases: []string{"p"},
			Usage:   "Base network (analytic, no-liquidity, fee-only, sweep-default)",
			Value:   defaultPreset,
		},
		&cli.IntFlag{Name: "relays", Usage: "Number of relays"},
		&cli.IntFlag{Name: "clients", Usage: "Number of clients"},
		&cli.IntFlag{Name: "relays-per-client", Usage: "Bootstrap relays per client"},
		&cli.IntFlag{Name: "hops", Usage: "Intermediate relays per payment path"},
		&cli.Float64Flag{Name: "base-fee", Usage: "Flat per-hop relay fee"},
		&cli.Float64Flag{Name: "proportional-fee", Usage: "Proportional per-hop fee in [0, 1)"},
		&cli.Float64Flag{Name: "channel-cost", Usage: "On-chain channel opening cost"},
		&cli.Float64Flag{Name: "r2r", Usage: "Relay-relay channel balance per side"},
		&cli.Float64Flag{Name: "r2c-relay", Usage: "Relay side of client-relay channels"},
		&cli.Float64Flag{Name: "r2c-client", Usage: "Client side of client-relay channels (accepts Inf)"},
		&cli.BoolFlag{Name: "liquidity-assumed", Usage: "Never check channel balances"},
	}
}

// networkConfig resolves the preset and applies the flags that were set.
func networkConfig(c *cli.Context) (domain.NetworkConfig, error) {
	cfg, ok := domain.PresetByName(c.String("preset"))
	if !ok {
		return domain.NetworkConfig{}, fmt.Errorf("unknown preset %q", c.String("preset"))
	}

	if c.IsSet("relays") {
		cfg.NumberOfRelays = c.Int("relays")
	}
	if c.IsSet("clients") {
		cfg.NumberOfClients = c.Int("clients")
	}
	if c.IsSet("relays-per-client") {
		cfg.NumberOfRelaysPerClient = c.Int("relays-per-client")
	}
	if c.IsSet("hops") {
		cfg.HopsNumber = c.Int("hops")
	}
	if c.IsSet("base-fee") {
		cfg.RelayTransactionFee = c.Float64("base-fee")
	}
	if c.IsSet("proportional-fee") {
		cfg.TransactionProportionalFee = c.Float64("proportional-fee")
	}
	if c.IsSet("channel-cost") {
		cfg.ChannelCost = c.Float64("channel-cost")
	}
	if c.IsSet("r2r") {
		cfg.DefaultBalanceRelayRelayChannel = c.Float64("r2r")
	}
	if c.IsSet("r2c-relay") {
		cfg.DefaultBalanceClientRelayChannelRelay = c.Float64("r2c-relay")
	}
	if c.IsSet("r2c-client") {
		cfg.DefaultBalanceClientRelayChannelClient = c.Float64("r2c-client")
	}
	if c.IsSet("liquidity-assumed") {
		cfg.IsLiquidityAssumed = c.Bool("liquidity-assumed")
	}

	if err := cfg.Validate(); err != nil {
		return domain.NetworkConfig{}, err
	}
	return cfg, nil
}

// valueFlags select the transaction value distribution of a run.
func valueFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "values",
			Usage: "Value distribution (uniform, lognormal)",
			Value: sampling.KindUniform,
		},
		&cli.Float64Flag{Name: "value-min", Usage: "Uniform lower bound", Value: 1},
		&cli.Float64Flag{Name: "value-max", Usage: "Uniform upper bound", Value: 10},
	}
}

// valuesConfig builds the sampler config; log-normal draws one value per transaction.
func valuesConfig(c *cli.Context, transactions int) (sampling.Config, error) {
	switch kind := c.String("values"); kind {
	case sampling.KindUniform:
		u := sampling.UniformSampler{Min: c.Float64("value-min"), Max: c.Float64("value-max")}
		if err := u.Validate(); err != nil {
			return sampling.Config{}, err
		}
		return sampling.Config{Kind: kind, Min: u.Min, Max: u.Max}, nil
	case sampling.KindLogNormal:
		return sampling.Config{Kind: kind, Size: max(transactions, 1)}, nil
	default:
		return sampling.Config{}, fmt.Errorf("%w: %q", sampling.ErrUnknownKind, kind)
	}
}
