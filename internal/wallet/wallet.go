// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"
)

// Wallet is an EVM account backed by a locally held private key.
type Wallet struct {
	Name    string
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewWallet parses a hex private key, with or without 0x prefix.
func NewWallet(name, privateKeyHex string) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &Wallet{
		Name:    name,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// WalletConfig is the layout of the wallets YAML file.
type WalletConfig struct {
	Wallets []struct {
		Name       string `yaml:"name"`
		PrivateKey string `yaml:"private_key"`
	} `yaml:"wallets"`
}

// LoadWallets reads named keys from a YAML file. Entries with an empty
// name or an unparseable key are skipped.
func LoadWallets(path string) (map[string]*Wallet, error) {
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config WalletConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(config.Wallets) == 0 {
		return nil, fmt.Errorf("no wallets found in configuration")
	}

	wallets := make(map[string]*Wallet)
	for _, entry := range config.Wallets {
		if entry.Name == "" || entry.PrivateKey == "" {
			continue
		}
		w, err := NewWallet(entry.Name, entry.PrivateKey)
		if err != nil {
			continue
		}
		wallets[entry.Name] = w
	}

	if len(wallets) == 0 {
		return nil, fmt.Errorf("no valid wallets loaded")
	}

	return wallets, nil
}

// Address returns the account address.
func (w *Wallet) Address() common.Address {
	return w.address
}

// TransactOpts returns signing options bound to chainID.
func (w *Wallet) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(w.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

func (w *Wallet) String() string {
	return w.address.Hex()
}

// ShortAddress renders an address as 0x458...e56A.
func ShortAddress(addr common.Address) string {
	hex := addr.Hex()
	return hex[:5] + "..." + hex[len(hex)-4:]
}
