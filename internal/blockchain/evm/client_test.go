package evm

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/xaut-perp/internal/trade"
)

type transactCall struct {
	method string
	value  *big.Int
	params []interface{}
}

type fakeContract struct {
	callErrs  []error
	calls     int
	result    []interface{}
	transacts []transactCall
	writeErr  error
}

func (f *fakeContract) Call(opts *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error {
	f.calls++
	if len(f.callErrs) > 0 {
		err := f.callErrs[0]
		f.callErrs = f.callErrs[1:]
		if err != nil {
			return err
		}
	}
	*results = f.result
	return nil
}

func (f *fakeContract) Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*ethtypes.Transaction, error) {
	f.transacts = append(f.transacts, transactCall{method: method, value: opts.Value, params: params})
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	return ethtypes.NewTx(&ethtypes.LegacyTx{Nonce: uint64(len(f.transacts)), Value: opts.Value}), nil
}

type fakeSigner struct {
	addr common.Address
	err  error
}

func (s fakeSigner) Address() common.Address { return s.addr }

func (s fakeSigner) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &bind.TransactOpts{From: s.addr}, nil
}

func newTestClient(t *testing.T, contract boundContract, retries uint) *PerpClient {
	t.Helper()
	c := newPerpClient(contract, common.HexToAddress("0x458D5E2e58d6a6D9C2C5cC9BAd51E1e0DDFfe56A"),
		Config{ChainID: 5003, ReadRetries: retries}, zaptest.NewLogger(t), nil)
	c.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return c
}

func TestPerpABISignatures(t *testing.T) {
	parsed, err := ParsePerpABI()
	require.NoError(t, err)

	assert.Equal(t, "positions(address)", parsed.Methods["positions"].Sig)
	assert.Equal(t, "openPosition(bool,uint256,uint256)", parsed.Methods["openPosition"].Sig)
	assert.Equal(t, "closePosition(uint256)", parsed.Methods["closePosition"].Sig)
	assert.True(t, parsed.Methods["openPosition"].IsPayable())
	assert.False(t, parsed.Methods["closePosition"].IsPayable())

	packed, err := parsed.Methods["positions"].Outputs.Pack(big.NewInt(-5), big.NewInt(2000), big.NewInt(100))
	require.NoError(t, err)
	values, err := parsed.Unpack("positions", packed)
	require.NoError(t, err)

	raw, err := decodePosition(values)
	require.NoError(t, err)
	assert.Equal(t, int64(-5), raw.Size.Int64())
	assert.Equal(t, int64(2000), raw.EntryPrice.Int64())
	assert.Equal(t, int64(100), raw.Margin.Int64())
}

func TestPositionRetriesTransientErrors(t *testing.T) {
	contract := &fakeContract{
		callErrs: []error{errors.New("connection reset"), errors.New("timeout")},
		result:   []interface{}{big.NewInt(7), big.NewInt(1), big.NewInt(2)},
	}
	c := newTestClient(t, contract, 3)

	raw, err := c.Position(context.Background(), common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, 3, contract.calls)
	assert.Equal(t, int64(7), raw.Size.Int64())
}

func TestPositionGivesUpAfterRetries(t *testing.T) {
	boom := errors.New("node down")
	contract := &fakeContract{callErrs: []error{boom, boom, boom, boom, boom}}
	c := newTestClient(t, contract, 2)

	_, err := c.Position(context.Background(), common.HexToAddress("0x01"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContractRead)
	assert.True(t, IsReadFailure(err))
	assert.Equal(t, 3, contract.calls)
}

func TestPositionMalformedResultIsNotRetried(t *testing.T) {
	contract := &fakeContract{result: []interface{}{big.NewInt(1)}}
	c := newTestClient(t, contract, 3)

	_, err := c.Position(context.Background(), common.HexToAddress("0x01"))
	assert.ErrorIs(t, err, ErrContractRead)
	assert.Equal(t, 1, contract.calls)
}

func TestOpenPositionAttachesMarginAsValue(t *testing.T) {
	contract := &fakeContract{}
	c := newTestClient(t, contract, 0)

	order := trade.OpenOrder{
		IsLong:      false,
		SizeDelta:   big.NewInt(150),
		MarginDelta: big.NewInt(100),
	}
	hash, err := c.OpenPosition(context.Background(), fakeSigner{addr: common.HexToAddress("0x02")}, order)
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)

	require.Len(t, contract.transacts, 1)
	call := contract.transacts[0]
	assert.Equal(t, "openPosition", call.method)
	assert.Equal(t, 0, call.value.Cmp(order.MarginDelta))
	assert.Equal(t, []interface{}{false, order.SizeDelta, order.MarginDelta}, call.params)
}

func TestWritesAreNotRetried(t *testing.T) {
	contract := &fakeContract{writeErr: errors.New("execution reverted: Insufficient margin")}
	c := newTestClient(t, contract, 5)
	signer := fakeSigner{addr: common.HexToAddress("0x02")}

	_, err := c.ClosePosition(context.Background(), signer, trade.CloseOrder{CloseSizeDelta: big.NewInt(1), Percent: 100})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContractWrite)
	assert.Len(t, contract.transacts, 1)

	reason, ok := RevertReason(err)
	require.True(t, ok)
	assert.Equal(t, "Insufficient margin", reason)
}

func TestWriteWithoutSigner(t *testing.T) {
	c := newTestClient(t, &fakeContract{}, 0)

	_, err := c.ClosePosition(context.Background(), nil, trade.CloseOrder{CloseSizeDelta: big.NewInt(1)})
	assert.ErrorIs(t, err, ErrNoSigner)
	assert.ErrorIs(t, err, ErrContractWrite)

	_, err = c.OpenPosition(context.Background(), fakeSigner{err: errors.New("locked")}, trade.OpenOrder{})
	assert.ErrorIs(t, err, ErrContractWrite)
}

type rpcDataError struct {
	msg  string
	data interface{}
}

func (e rpcDataError) Error() string          { return e.msg }
func (e rpcDataError) ErrorCode() int         { return 3 }
func (e rpcDataError) ErrorData() interface{} { return e.data }

func encodeRevert(t *testing.T, reason string) string {
	t.Helper()
	stringType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	require.NoError(t, err)
	selector := []byte{0x08, 0xc3, 0x79, 0xa0}
	return hexutil.Encode(append(selector, packed...))
}

func TestRevertReason(t *testing.T) {
	wrapped := errors.Join(ErrContractWrite, rpcDataError{
		msg:  "execution reverted",
		data: encodeRevert(t, "Position too small"),
	})

	reason, ok := RevertReason(wrapped)
	require.True(t, ok)
	assert.Equal(t, "Position too small", reason)

	_, ok = RevertReason(errors.New("nonce too low"))
	assert.False(t, ok)

	_, ok = RevertReason(rpcDataError{msg: "execution reverted", data: "0xdeadbeef"})
	assert.False(t, ok)

	_, ok = RevertReason(nil)
	assert.False(t, ok)
}
