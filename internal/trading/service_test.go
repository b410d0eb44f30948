package trading

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/xaut-perp/internal/blockchain/evm"
	"github.com/rovshanmuradov/xaut-perp/internal/journal"
	"github.com/rovshanmuradov/xaut-perp/internal/metrics"
	"github.com/rovshanmuradov/xaut-perp/internal/position"
	"github.com/rovshanmuradov/xaut-perp/internal/trade"
	"github.com/rovshanmuradov/xaut-perp/internal/types"
)

var (
	testAccount = common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")
	unit        = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

func scaled(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), unit)
}

type fakeContract struct {
	mu        sync.Mutex
	reads     int
	position  *position.Raw
	readErr   error
	writeErr  error
	opens     []trade.OpenOrder
	closes    []trade.CloseOrder
	block     chan struct{}
	entered   chan struct{}
	onWrite   func()
	lastCtxOK bool
}

func (f *fakeContract) Position(ctx context.Context, account common.Address) (*position.Raw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	f.lastCtxOK = ctx.Err() == nil
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.position, nil
}

func (f *fakeContract) write() error {
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}
	if f.onWrite != nil {
		f.onWrite()
	}
	return f.writeErr
}

func (f *fakeContract) OpenPosition(ctx context.Context, signer evm.Signer, order trade.OpenOrder) (common.Hash, error) {
	f.mu.Lock()
	f.opens = append(f.opens, order)
	f.mu.Unlock()
	if err := f.write(); err != nil {
		return common.Hash{}, err
	}
	return common.HexToHash("0xaa"), nil
}

func (f *fakeContract) ClosePosition(ctx context.Context, signer evm.Signer, order trade.CloseOrder) (common.Hash, error) {
	f.mu.Lock()
	f.closes = append(f.closes, order)
	f.mu.Unlock()
	if err := f.write(); err != nil {
		return common.Hash{}, err
	}
	return common.HexToHash("0xbb"), nil
}

type fakeSigner struct{}

func (fakeSigner) Address() common.Address { return testAccount }

func (fakeSigner) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	return &bind.TransactOpts{From: testAccount}, nil
}

type fakeAccount struct {
	connected bool
	hasAcc    bool
}

func (a fakeAccount) Connected() bool { return a.connected }

func (a fakeAccount) Account() (common.Address, bool) { return testAccount, a.hasAcc }

func (a fakeAccount) Signer() evm.Signer {
	if !a.connected {
		return nil
	}
	return fakeSigner{}
}

type memRecorder struct {
	entries []journal.Entry
}

func (r *memRecorder) Record(e journal.Entry) (journal.Entry, error) {
	r.entries = append(r.entries, e)
	return e, nil
}

func newService(t *testing.T, contract *fakeContract, acc Account) (*Service, *memRecorder, *metrics.Collector) {
	t.Helper()
	rec := &memRecorder{}
	collector := metrics.NewCollector()
	return NewService(contract, acc, rec, collector, zaptest.NewLogger(t)), rec, collector
}

func openTicket(t *testing.T) trade.Ticket {
	t.Helper()
	ticket, err := trade.Quote("100", 3, types.Some(2000))
	require.NoError(t, err)
	return ticket
}

func TestOpenSubmitsAndReloads(t *testing.T) {
	contract := &fakeContract{position: &position.Raw{Size: scaled(1), EntryPrice: scaled(2000), Margin: scaled(100)}}
	svc, rec, collector := newService(t, contract, fakeAccount{connected: true, hasAcc: true})

	res := svc.Open(context.Background(), true, openTicket(t), types.Some(2000))
	require.NoError(t, res.Err)
	assert.True(t, res.Success())
	assert.Equal(t, NoticeOpened, res.Notice)
	assert.Equal(t, common.HexToHash("0xaa"), res.TxHash)
	require.NotNil(t, res.Position)
	assert.True(t, res.Position.Open())
	assert.True(t, res.Reloaded)
	assert.Equal(t, 1, contract.reads)

	require.Len(t, contract.opens, 1)
	order := contract.opens[0]
	assert.True(t, order.IsLong)
	assert.Equal(t, "150000000000000000", order.SizeDelta.String())
	assert.Equal(t, "100000000000000000000", order.MarginDelta.String())
	assert.Equal(t, 0, order.Value().Cmp(order.MarginDelta))

	require.Len(t, rec.entries, 1)
	entry := rec.entries[0]
	assert.Equal(t, journal.ActionOpen, entry.Action)
	assert.Equal(t, "LONG", entry.Side)
	assert.True(t, entry.Success)
	assert.Equal(t, testAccount.Hex(), entry.Account)
	assert.Equal(t, common.HexToHash("0xaa").Hex(), entry.TxHash)

	count, err := testutil.GatherAndCount(collector.Gatherer(), "xaut_perp_submissions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFailedSubmissionStillReloads(t *testing.T) {
	contract := &fakeContract{writeErr: errors.New("execution reverted: Insufficient margin")}
	svc, rec, _ := newService(t, contract, fakeAccount{connected: true, hasAcc: true})

	res := svc.Open(context.Background(), false, openTicket(t), types.Some(2000))
	require.Error(t, res.Err)
	assert.False(t, res.Success())
	assert.Equal(t, "Insufficient margin", res.Notice)
	assert.Equal(t, 1, contract.reads, "reload runs after failure")
	assert.Nil(t, res.Position)

	require.Len(t, rec.entries, 1)
	assert.False(t, rec.entries[0].Success)
	assert.Equal(t, "SHORT", rec.entries[0].Side)
	assert.Equal(t, "Insufficient margin", rec.entries[0].ErrorMsg)
}

func TestGenericFailureNotice(t *testing.T) {
	contract := &fakeContract{writeErr: errors.New("nonce too low")}
	svc, _, _ := newService(t, contract, fakeAccount{connected: true, hasAcc: true})

	res := svc.Close(context.Background(), &position.Raw{Size: scaled(2), EntryPrice: scaled(1), Margin: scaled(1)}, 50, types.NullFloat{})
	assert.Equal(t, NoticeCloseFailed, res.Notice)
	assert.Equal(t, 1, contract.reads)
}

func TestCloseComputesPartialSize(t *testing.T) {
	contract := &fakeContract{}
	svc, rec, _ := newService(t, contract, fakeAccount{connected: true, hasAcc: true})

	raw := &position.Raw{Size: scaled(-3), EntryPrice: scaled(2000), Margin: scaled(600)}
	res := svc.Close(context.Background(), raw, 50, types.Some(1900))
	require.NoError(t, res.Err)
	assert.Equal(t, NoticeClosed, res.Notice)
	assert.Nil(t, res.Position, "reloaded account holds no position")

	require.Len(t, contract.closes, 1)
	assert.Equal(t, "1500000000000000000", contract.closes[0].CloseSizeDelta.String())

	require.Len(t, rec.entries, 1)
	assert.Equal(t, "SHORT", rec.entries[0].Side)
	assert.Equal(t, 50, rec.entries[0].ClosePercent)
	assert.InDelta(t, 1.5, rec.entries[0].SizeXAUT, 1e-9)
}

func TestValidationErrorsDoNotSubmit(t *testing.T) {
	contract := &fakeContract{}
	svc, rec, _ := newService(t, contract, fakeAccount{connected: true, hasAcc: true})

	res := svc.Close(context.Background(), nil, 100, types.NullFloat{})
	assert.ErrorIs(t, res.Err, trade.ErrNoPosition)
	assert.Equal(t, NoticeCloseFailed, res.Notice)

	empty, err := trade.Quote("", 3, types.Some(2000))
	require.NoError(t, err)
	res = svc.Open(context.Background(), true, empty, types.Some(2000))
	assert.Error(t, res.Err)

	assert.Empty(t, contract.opens)
	assert.Empty(t, contract.closes)
	assert.Empty(t, rec.entries)
	assert.False(t, svc.Busy())
	assert.Equal(t, 2, contract.reads, "rejected orders still reload")
}

func TestRejectedOrderReloadsPosition(t *testing.T) {
	held := &position.Raw{Size: scaled(1), EntryPrice: scaled(2000), Margin: scaled(500)}
	contract := &fakeContract{position: held}
	svc, rec, _ := newService(t, contract, fakeAccount{connected: true, hasAcc: true})

	// Tradeable on screen, but the size rounds to zero at six decimals.
	dust, err := trade.Quote("0.0009", 1, types.Some(2000))
	require.NoError(t, err)
	require.True(t, trade.CanTrade(true, dust, types.Some(2000)))

	res := svc.Open(context.Background(), true, dust, types.Some(2000))
	assert.ErrorIs(t, res.Err, trade.ErrEmptyOrder)
	assert.Equal(t, NoticeOpenFailed, res.Notice)
	assert.True(t, res.Reloaded)
	assert.Same(t, held, res.Position)
	assert.Equal(t, 1, contract.reads)
	assert.Empty(t, contract.opens)
	assert.Empty(t, rec.entries)

	res = svc.Close(context.Background(), held, 0, types.Some(2000))
	assert.ErrorIs(t, res.Err, trade.ErrClosePercentOutOfRange)
	assert.True(t, res.Reloaded)
	assert.Same(t, held, res.Position)
	assert.Equal(t, 2, contract.reads)
	assert.Empty(t, contract.closes)
}

func TestNotConnected(t *testing.T) {
	contract := &fakeContract{}
	svc, _, _ := newService(t, contract, fakeAccount{hasAcc: true})

	res := svc.Open(context.Background(), true, openTicket(t), types.Some(2000))
	assert.ErrorIs(t, res.Err, ErrNotConnected)
	assert.Empty(t, contract.opens)
	assert.False(t, svc.Connected())
	assert.True(t, res.Reloaded)
	assert.Equal(t, 1, contract.reads)
}

func TestBusyGateRejectsConcurrentSubmission(t *testing.T) {
	contract := &fakeContract{block: make(chan struct{}), entered: make(chan struct{})}
	svc, _, _ := newService(t, contract, fakeAccount{connected: true, hasAcc: true})

	ticket := openTicket(t)
	done := make(chan Result)
	go func() {
		done <- svc.Open(context.Background(), true, ticket, types.Some(2000))
	}()

	<-contract.entered
	assert.True(t, svc.Busy())

	second := svc.Close(context.Background(), &position.Raw{Size: scaled(1)}, 100, types.NullFloat{})
	assert.ErrorIs(t, second.Err, ErrBusy)
	assert.False(t, second.Reloaded)

	close(contract.block)
	first := <-done
	assert.NoError(t, first.Err)
	assert.False(t, svc.Busy())
	assert.Empty(t, contract.closes)
}

func TestReloadSurvivesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	contract := &fakeContract{}
	contract.onWrite = cancel
	svc, _, _ := newService(t, contract, fakeAccount{connected: true, hasAcc: true})

	res := svc.Open(ctx, true, openTicket(t), types.Some(2000))
	require.NoError(t, res.Err)
	assert.Equal(t, 1, contract.reads)
	assert.True(t, contract.lastCtxOK)
}

func TestLoadPosition(t *testing.T) {
	contract := &fakeContract{readErr: fmt.Errorf("%w: node down", evm.ErrContractRead)}
	svc, _, _ := newService(t, contract, fakeAccount{hasAcc: true})

	raw, err := svc.LoadPosition(context.Background())
	assert.Nil(t, raw)
	assert.ErrorIs(t, err, evm.ErrContractRead)

	noAcc, _, _ := newService(t, &fakeContract{}, fakeAccount{})
	raw, err = noAcc.LoadPosition(context.Background())
	assert.Nil(t, raw)
	assert.NoError(t, err)
}
