package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// PerpABI is the subset of the perp market contract this client calls.
const PerpABI = `[
  {
    "type": "function",
    "name": "positions",
    "stateMutability": "view",
    "inputs": [{"name": "account", "type": "address"}],
    "outputs": [
      {"name": "size", "type": "int256"},
      {"name": "entryPrice", "type": "uint256"},
      {"name": "margin", "type": "uint256"}
    ]
  },
  {
    "type": "function",
    "name": "openPosition",
    "stateMutability": "payable",
    "inputs": [
      {"name": "isLong", "type": "bool"},
      {"name": "sizeDelta", "type": "uint256"},
      {"name": "marginDelta", "type": "uint256"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "closePosition",
    "stateMutability": "nonpayable",
    "inputs": [{"name": "closeSize", "type": "uint256"}],
    "outputs": []
  }
]`

const (
	methodPositions     = "positions"
	methodOpenPosition  = "openPosition"
	methodClosePosition = "closePosition"
)

// ParsePerpABI parses PerpABI.
func ParsePerpABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(PerpABI))
}
