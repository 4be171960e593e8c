package postgres

import "ln-relay-lab/internal/domain"

// configColumns lists the NetworkConfig columns shared by runs and sweep_cells,
// in the order of configArgs and configDest.
const configColumns = `
	balance_client_relay_client, balance_client_relay_relay, balance_relay_relay,
	channel_cost, relay_transaction_fee, transaction_proportional_fee,
	hops_number, is_liquidity_assumed,
	number_of_relays, number_of_clients, number_of_relays_per_client`

func configArgs(c domain.NetworkConfig) []any {
	return []any{
		c.DefaultBalanceClientRelayChannelClient, c.DefaultBalanceClientRelayChannelRelay, c.DefaultBalanceRelayRelayChannel,
		c.ChannelCost, c.RelayTransactionFee, c.TransactionProportionalFee,
		c.HopsNumber, c.IsLiquidityAssumed,
		c.NumberOfRelays, c.NumberOfClients, c.NumberOfRelaysPerClient,
	}
}

func configDest(c *domain.NetworkConfig) []any {
	return []any{
		&c.DefaultBalanceClientRelayChannelClient, &c.DefaultBalanceClientRelayChannelRelay, &c.DefaultBalanceRelayRelayChannel,
		&c.ChannelCost, &c.RelayTransactionFee, &c.TransactionProportionalFee,
		&c.HopsNumber, &c.IsLiquidityAssumed,
		&c.NumberOfRelays, &c.NumberOfClients, &c.NumberOfRelaysPerClient,
	}
}
