package evm

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrContractRead is returned when positions() cannot be read after retries.
	ErrContractRead = errors.New("contract read failed")
	// ErrContractWrite is returned when a transaction could not be submitted.
	ErrContractWrite = errors.New("contract write failed")
	// ErrNoSigner is returned for writes on a read-only session.
	ErrNoSigner = errors.New("no signing key configured")
)

const revertPrefix = "execution reverted: "

// RevertReason extracts the human-readable revert string from a node
// error. It understands the JSON-RPC error data payload and falls back to
// the "execution reverted: ..." message form.
func RevertReason(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if reason, ok := decodeRevertData(dataErr.ErrorData()); ok {
			return reason, true
		}
	}

	msg := err.Error()
	if i := strings.Index(msg, revertPrefix); i >= 0 {
		reason := strings.TrimSpace(msg[i+len(revertPrefix):])
		if reason != "" {
			return reason, true
		}
	}
	return "", false
}

func decodeRevertData(data interface{}) (string, bool) {
	hexData, ok := data.(string)
	if !ok {
		return "", false
	}
	raw, err := hexutil.Decode(hexData)
	if err != nil {
		return "", false
	}
	reason, err := abi.UnpackRevert(raw)
	if err != nil || reason == "" {
		return "", false
	}
	return reason, true
}
