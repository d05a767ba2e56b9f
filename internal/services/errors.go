package services

import "errors"

// Common service errors
var (
	ErrNotFound                 = errors.New("record not found")
	ErrUnauthorized             = errors.New("unauthorized")
	ErrInvalidState             = errors.New("invalid state transition")
	ErrTransactionNotReversible = errors.New("transaction can no longer be reversed")
	ErrNoPaymentEvents          = errors.New("transaction has no payment events to reverse")
	ErrNoDestinationObligation  = errors.New("no unpaid obligation to transfer the payment onto")
	ErrTransferAmountMismatch   = errors.New("transfer amount does not match the reversed transaction")
	ErrAccountMismatch          = errors.New("transaction does not belong to the given account")
)
