package chain

import (
	"errors"
	"fmt"
	"strings"
)

const sequenceMismatchLog = "account sequence mismatch"

// grpc status code for NotFound as relayed by the gateway.
const codeNotFound = 5

// ErrClosed is returned by a client after Close.
var ErrClosed = errors.New("chain client closed")

// RejectedError is a transaction rejected by the chain. Retryable is set for
// account sequence mismatches, which succeed once the sequence is refetched.
type RejectedError struct {
	Code      uint32
	Codespace string
	RawLog    string
	TxHash    string
	Retryable bool
}

func (e *RejectedError) Error() string {
	if e.TxHash != "" {
		return fmt.Sprintf("transaction %s rejected (code %d, raw log: %s)", e.TxHash, e.Code, e.RawLog)
	}
	return fmt.Sprintf("transaction rejected (code %d, raw log: %s)", e.Code, e.RawLog)
}

func newRejectedError(code uint32, codespace, rawLog, txHash string) *RejectedError {
	return &RejectedError{
		Code:      code,
		Codespace: codespace,
		RawLog:    rawLog,
		TxHash:    txHash,
		Retryable: strings.Contains(rawLog, sequenceMismatchLog),
	}
}

// TimeoutError reports a broadcast transaction that was not observed in a
// block within the poll bound.
type TimeoutError struct {
	TxHash string
	Polls  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transaction %s not included after %d polls", e.TxHash, e.Polls)
}

// TransportError wraps a failed request: connection errors, deadlines and
// unreadable responses.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// apiError is a non-2xx gateway response.
type apiError struct {
	Status  int
	Code    int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gateway returned status %d (code %d): %s", e.Status, e.Code, e.Message)
}

func isNotFound(err error) bool {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == 404 || apiErr.Code == codeNotFound
}

// asRejection turns a gateway error on simulate or broadcast into a rejection:
// the node answered and refused the transaction. Transport errors pass
// through unchanged.
func asRejection(err error) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return newRejectedError(uint32(apiErr.Code), "", apiErr.Message, "")
	}
	return err
}
