package evm

// TokenABI covers the read-only delegation surface of the governance token:
//   - getDelegate(address) -> address
//   - getDelegatorsOf(address) -> address[]
//   - balanceOf(address) -> uint256
const TokenABI = `[
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"getDelegate","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"delegatee","type":"address"}],"name":"getDelegatorsOf","outputs":[{"name":"","type":"address[]"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// AccessControlABI is the role query of an OpenZeppelin style AccessControl contract
const AccessControlABI = `[
	{"constant":true,"inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"name":"hasRole","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"}
]`

// Method names used for packing calls and labelling metrics
const (
	methodGetDelegate     = "getDelegate"
	methodGetDelegatorsOf = "getDelegatorsOf"
	methodBalanceOf       = "balanceOf"
	methodHasRole         = "hasRole"
)
