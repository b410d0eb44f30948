// Package trading submits position changes and keeps the displayed position
// in sync with the contract.
package trading

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/xaut-perp/internal/blockchain/evm"
	"github.com/rovshanmuradov/xaut-perp/internal/journal"
	"github.com/rovshanmuradov/xaut-perp/internal/logger"
	"github.com/rovshanmuradov/xaut-perp/internal/metrics"
	"github.com/rovshanmuradov/xaut-perp/internal/position"
	"github.com/rovshanmuradov/xaut-perp/internal/trade"
	"github.com/rovshanmuradov/xaut-perp/internal/types"
)

var (
	ErrBusy         = errors.New("a submission is already in progress")
	ErrNotConnected = errors.New("wallet not connected")
)

const (
	NoticeOpened      = "Position opened successfully"
	NoticeClosed      = "Position closed successfully"
	NoticeOpenFailed  = "Failed to open position"
	NoticeCloseFailed = "Failed to close position"
)

// Contract is the perp contract surface the service drives.
type Contract interface {
	Position(ctx context.Context, account common.Address) (*position.Raw, error)
	OpenPosition(ctx context.Context, signer evm.Signer, order trade.OpenOrder) (common.Hash, error)
	ClosePosition(ctx context.Context, signer evm.Signer, order trade.CloseOrder) (common.Hash, error)
}

// Account is the connected user.
type Account interface {
	Connected() bool
	Account() (common.Address, bool)
	Signer() evm.Signer
}

// Recorder persists submissions. *journal.Journal satisfies it.
type Recorder interface {
	Record(entry journal.Entry) (journal.Entry, error)
}

// Result is the outcome of one submission, including the reloaded position.
// Position is only meaningful when Reloaded is set; a nil Position after a
// reload means the account holds none.
type Result struct {
	Action   journal.Action
	TxHash   common.Hash
	Err      error
	Notice   string
	Position *position.Raw
	Reloaded bool
}

// Success reports whether the submission call returned without error.
func (r Result) Success() bool {
	return r.Err == nil
}

// Service serializes submissions behind a busy gate.
type Service struct {
	contract Contract
	account  Account
	recorder Recorder
	metrics  *metrics.Collector
	logger   *zap.Logger

	busy atomic.Bool
}

// NewService wires the contract client and session. recorder and collector may be nil.
func NewService(contract Contract, account Account, recorder Recorder, collector *metrics.Collector, logger *zap.Logger) *Service {
	return &Service{
		contract: contract,
		account:  account,
		recorder: recorder,
		metrics:  collector,
		logger:   logger.Named("trading"),
	}
}

// Busy reports whether a submission is outstanding.
func (s *Service) Busy() bool {
	return s.busy.Load()
}

// Connected reports whether the session can sign.
func (s *Service) Connected() bool {
	return s.account != nil && s.account.Connected()
}

// LoadPosition reads the account's position. A read failure is logged and
// reported as no position together with the error.
func (s *Service) LoadPosition(ctx context.Context) (*position.Raw, error) {
	if s.account == nil {
		return nil, nil
	}
	addr, ok := s.account.Account()
	if !ok {
		return nil, nil
	}

	raw, err := s.contract.Position(ctx, addr)
	if err != nil {
		s.logger.Warn("Position read failed, showing no position",
			zap.String("account", addr.Hex()),
			zap.Error(err))
		return nil, err
	}

	side := "NONE"
	if raw.Open() {
		side = string(sideOf(raw))
	}
	s.logger.Debug("Position reloaded",
		zap.String("account", addr.Hex()),
		zap.String("side", side))
	return raw, nil
}

// Open sizes and submits an openPosition order. price is journaled only.
func (s *Service) Open(ctx context.Context, isLong bool, ticket trade.Ticket, price types.NullFloat) Result {
	result := Result{Action: journal.ActionOpen}

	if !s.Connected() {
		result.Err = ErrNotConnected
		result.Notice = NoticeOpenFailed
		s.reload(ctx, &result)
		return result
	}
	if !s.busy.CompareAndSwap(false, true) {
		result.Err = ErrBusy
		return result
	}
	defer s.busy.Store(false)

	order, err := trade.BuildOpen(isLong, ticket)
	if err != nil {
		result.Err = fmt.Errorf("build open order: %w", err)
		result.Notice = NoticeOpenFailed
		s.logger.Warn("Open order rejected before submission", zap.Error(err))
		s.reload(ctx, &result)
		return result
	}

	opLog := logger.WithOperation(s.logger, "open_position")
	start := time.Now()
	result.TxHash, result.Err = s.contract.OpenPosition(ctx, s.account.Signer(), order)
	s.metrics.RecordSubmission(string(journal.ActionOpen), time.Since(start), result.Err)

	entry := journal.Entry{
		Action:      journal.ActionOpen,
		Side:        string(order.Side()),
		SizeXAUT:    ticket.Size,
		MarginUSD:   ticket.Margin,
		Leverage:    ticket.Leverage,
		Price:       price.Or(0),
		SizeDelta:   order.SizeDelta.String(),
		MarginDelta: order.MarginDelta.String(),
	}
	result.Notice = s.finish(ctx, opLog, &result, entry, NoticeOpened, NoticeOpenFailed)
	return result
}

// Close submits closePosition for percent of raw's size.
func (s *Service) Close(ctx context.Context, raw *position.Raw, percent int, price types.NullFloat) Result {
	result := Result{Action: journal.ActionClose}

	if !s.Connected() {
		result.Err = ErrNotConnected
		result.Notice = NoticeCloseFailed
		s.reload(ctx, &result)
		return result
	}
	if !s.busy.CompareAndSwap(false, true) {
		result.Err = ErrBusy
		return result
	}
	defer s.busy.Store(false)

	order, err := trade.BuildClose(raw, percent)
	if err != nil {
		result.Err = fmt.Errorf("build close order: %w", err)
		result.Notice = NoticeCloseFailed
		s.logger.Warn("Close order rejected before submission", zap.Error(err))
		s.reload(ctx, &result)
		return result
	}

	opLog := logger.WithOperation(s.logger, "close_position")
	start := time.Now()
	result.TxHash, result.Err = s.contract.ClosePosition(ctx, s.account.Signer(), order)
	s.metrics.RecordSubmission(string(journal.ActionClose), time.Since(start), result.Err)

	decoded, _ := position.Decode(raw, price)
	entry := journal.Entry{
		Action:       journal.ActionClose,
		Side:         string(decoded.Side),
		SizeXAUT:     decoded.AbsSize * float64(percent) / 100,
		ClosePercent: percent,
		Price:        price.Or(0),
		SizeDelta:    order.CloseSizeDelta.String(),
	}
	result.Notice = s.finish(ctx, opLog, &result, entry, NoticeClosed, NoticeCloseFailed)
	return result
}

// finish journals the attempt, reloads the position whatever the outcome and
// returns the notice text.
func (s *Service) finish(ctx context.Context, opLog *zap.Logger, result *Result, entry journal.Entry, okText, failText string) string {
	notice := okText
	if result.Err != nil {
		notice = failText
		if reason, ok := evm.RevertReason(result.Err); ok {
			notice = reason
		}
		opLog.Error("Order failed",
			zap.String("action", string(result.Action)),
			zap.String("reason", notice),
			zap.Error(result.Err))
	} else {
		opLog.Info("Order submitted",
			zap.String("action", string(result.Action)),
			zap.String("tx_hash", result.TxHash.Hex()))
	}

	if s.recorder != nil {
		if addr, ok := s.account.Account(); ok {
			entry.Account = addr.Hex()
		}
		entry.Success = result.Err == nil
		if result.Err != nil {
			entry.ErrorMsg = notice
		} else {
			entry.TxHash = result.TxHash.Hex()
		}
		if _, err := s.recorder.Record(entry); err != nil {
			opLog.Warn("Journal write failed", zap.Error(err))
		}
	}

	s.reload(ctx, result)
	return notice
}

// reload refreshes result.Position. The submission context may be cancelled
// already; the reload still runs.
func (s *Service) reload(ctx context.Context, result *Result) {
	result.Position, _ = s.LoadPosition(context.WithoutCancel(ctx))
	result.Reloaded = true
}

func sideOf(raw *position.Raw) position.Side {
	if raw.Size.Sign() > 0 {
		return position.Long
	}
	return position.Short
}
