package types

// Network identifies a Solana cluster.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkDevnet  Network = "devnet"
)

// clusterEndpoints maps each supported network to its public RPC endpoint.
var clusterEndpoints = map[Network]string{
	NetworkMainnet: "https://api.mainnet-beta.solana.com",
	NetworkTestnet: "https://api.testnet.solana.com",
	NetworkDevnet:  "https://api.devnet.solana.com",
}

// IsNetworkSupported checks if a network name is a known cluster.
func IsNetworkSupported(network string) bool {
	_, ok := clusterEndpoints[Network(network)]
	return ok
}

// RPCEndpoint returns the public RPC endpoint for the given network, or the
// empty string if the network is unknown.
func RPCEndpoint(network Network) string {
	return clusterEndpoints[network]
}
