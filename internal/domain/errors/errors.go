// Package errors defines the ledger's error taxonomy and the machinery for
// classifying an error chain back to one of its kinds. Handlers and the
// orchestrator return these; the HTTP adapter maps them to status codes.
package errors

import (
	"errors"
	"fmt"
)

// Kind is one of the classification buckets the orchestrator maps to
// an HTTP status. It is attached to every error the ledger raises so the
// adapter layer never has to pattern-match on message strings.
type Kind string

const (
	KindWalletNotFound       Kind = "WALLET_NOT_FOUND"
	KindBalanceNotFound      Kind = "BALANCE_NOT_FOUND"
	KindHoldNotFound         Kind = "HOLD_NOT_FOUND"
	KindHoldNotHeld          Kind = "HOLD_NOT_HELD"
	KindHoldAmountExceeds    Kind = "HOLD_AMOUNT_EXCEEDS"
	KindInsufficientBalance  Kind = "INSUFFICIENT_BALANCE"
	KindDuplicateTransaction Kind = "DUPLICATE_TRANSACTION"
	KindBusy                 Kind = "BUSY"
	KindInvalidInput         Kind = "INVALID_INPUT"
	KindInternal             Kind = "INTERNAL"
	KindCreditTypeNotFound   Kind = "CREDIT_TYPE_NOT_FOUND"
	KindCreditTypeNameExists Kind = "CREDIT_TYPE_NAME_EXISTS"
)

// LedgerError is the concrete error type every domain-level failure is
// wrapped in. Construct it with the New* helpers below and compare with
// errors.Is/errors.As.
type LedgerError struct {
	Kind    Kind
	Message string
	Err     error // optional wrapped cause, e.g. a driver error
}

func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

func newErr(kind Kind, message string, cause error) *LedgerError {
	return &LedgerError{Kind: kind, Message: message, Err: cause}
}

func NewWalletNotFound(walletID string) error {
	return newErr(KindWalletNotFound, fmt.Sprintf("wallet %q not found", walletID), nil)
}

func NewBalanceNotFound(walletID, creditTypeID string) error {
	return newErr(KindBalanceNotFound, fmt.Sprintf("no balance for wallet %q credit type %q", walletID, creditTypeID), nil)
}

func NewHoldNotFound(holdID string) error {
	return newErr(KindHoldNotFound, fmt.Sprintf("hold transaction %q not found", holdID), nil)
}

func NewHoldNotHeld(holdID string) error {
	return newErr(KindHoldNotHeld, fmt.Sprintf("hold transaction %q is not in held state", holdID), nil)
}

func NewHoldAmountExceeds(holdID string) error {
	return newErr(KindHoldAmountExceeds, fmt.Sprintf("debit amount exceeds hold %q amount", holdID), nil)
}

func NewInsufficientBalance(walletID, creditTypeID string) error {
	return newErr(KindInsufficientBalance, fmt.Sprintf("insufficient balance for wallet %q credit type %q", walletID, creditTypeID), nil)
}

func NewDuplicateTransaction(walletID, externalID string) error {
	return newErr(KindDuplicateTransaction, fmt.Sprintf("external_id %q already used for wallet %q", externalID, walletID), nil)
}

func NewBusy(walletID, creditTypeID string) error {
	return newErr(KindBusy, fmt.Sprintf("timed out acquiring lock for wallet %q credit type %q", walletID, creditTypeID), nil)
}

func NewInvalidInput(message string) error {
	return newErr(KindInvalidInput, message, nil)
}

func NewInternal(message string, cause error) error {
	return newErr(KindInternal, message, cause)
}

func NewCreditTypeNotFound(creditTypeID string) error {
	return newErr(KindCreditTypeNotFound, fmt.Sprintf("credit type %q not found", creditTypeID), nil)
}

func NewCreditTypeNameExists(name string) error {
	return newErr(KindCreditTypeNameExists, fmt.Sprintf("credit type name %q already exists", name), nil)
}

// KindOf walks the error chain looking for a *LedgerError and returns its
// Kind, defaulting to KindInternal for anything unclassified (driver
// errors, context deadline, etc.) so the adapter layer always has a kind
// to map to a status code.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindInternal
}

// ValidationErrors collects field-level validation failures surfaced by
// request binding, kept distinct from LedgerError because it maps to 422
// rather than a single Kind.
type ValidationErrors struct {
	Errors []ValidationError
}

// ValidationError is a single field-level failure. It satisfies error
// on its own so a constructor can return one directly without wrapping
// it in a ValidationErrors slice first.
type ValidationError struct {
	Field   string
	Message string
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors = append(v.Errors, ValidationError{Field: field, Message: message})
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s: %s", v.Errors[0].Field, v.Errors[0].Message)
}
