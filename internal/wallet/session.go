package wallet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/xaut-perp/internal/blockchain/evm"
)

// ErrWalletNotFound is returned when the configured wallet name is absent.
var ErrWalletNotFound = errors.New("wallet not found")

// Session is the connection state of the terminal. A session without a
// signing wallet is read-only: positions can be watched, not traded.
type Session struct {
	wallet *Wallet
	watch  common.Address
	hasKey bool
	hasAcc bool
}

// NewSession builds a session from an optional wallet and an optional watch address.
func NewSession(w *Wallet, watchAddress string) (*Session, error) {
	s := &Session{wallet: w}
	if w != nil {
		s.hasKey = true
		s.hasAcc = true
		return s, nil
	}

	if watchAddress != "" {
		if !common.IsHexAddress(watchAddress) {
			return nil, fmt.Errorf("invalid watch address %q", watchAddress)
		}
		s.watch = common.HexToAddress(watchAddress)
		s.hasAcc = true
	}
	return s, nil
}

// OpenSession loads walletFile and selects walletName. An empty walletFile
// yields a read-only session. With a single wallet in the file the name may
// be left empty.
func OpenSession(walletFile, walletName, watchAddress string, logger *zap.Logger) (*Session, error) {
	if walletFile == "" {
		logger.Info("No wallet file configured, running read-only",
			zap.String("watch_address", watchAddress))
		return NewSession(nil, watchAddress)
	}

	wallets, err := LoadWallets(walletFile)
	if err != nil {
		return nil, err
	}

	w, err := selectWallet(wallets, walletName)
	if err != nil {
		return nil, err
	}

	logger.Info("Wallet loaded",
		zap.String("name", w.Name),
		zap.String("address", ShortAddress(w.Address())))
	return NewSession(w, "")
}

func selectWallet(wallets map[string]*Wallet, name string) (*Wallet, error) {
	if name != "" {
		w, ok := wallets[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrWalletNotFound, name)
		}
		return w, nil
	}

	if len(wallets) == 1 {
		for _, w := range wallets {
			return w, nil
		}
	}

	names := make([]string, 0, len(wallets))
	for n := range wallets {
		names = append(names, n)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("%w: wallet_name is required, file holds %v", ErrWalletNotFound, names)
}

// Connected reports whether the session can sign transactions.
func (s *Session) Connected() bool {
	return s != nil && s.hasKey
}

// Account returns the address whose position is displayed.
func (s *Session) Account() (common.Address, bool) {
	if s == nil || !s.hasAcc {
		return common.Address{}, false
	}
	if s.wallet != nil {
		return s.wallet.Address(), true
	}
	return s.watch, true
}

// Wallet returns the signing wallet, or nil on a read-only session.
func (s *Session) Wallet() *Wallet {
	if s == nil {
		return nil
	}
	return s.wallet
}

// Signer returns the wallet as a transaction signer, or nil when read-only.
func (s *Session) Signer() evm.Signer {
	if s == nil || s.wallet == nil {
		return nil
	}
	return s.wallet
}
