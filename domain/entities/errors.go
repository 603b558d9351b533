package entities

import "errors"

// Sentinel errors returned by the domain. Callers match with errors.Is;
// services wrap them with context.
var (
	ErrAuctionNotFound   = errors.New("auction not found")
	ErrAuctionNotActive  = errors.New("auction is not active")
	ErrInvalidAmount     = errors.New("amount must be a positive integer")
	ErrBidTooLow         = errors.New("bid too low")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInvalidAuction    = errors.New("invalid auction")
	ErrTieUnresolved     = errors.New("tie could not be resolved")
)

// Wire-level rejection codes
const (
	CodeBidTooLow         = "BID_TOO_LOW"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeAuctionNotFound   = "AUCTION_NOT_FOUND"
	CodeAuctionNotActive  = "AUCTION_NOT_ACTIVE"
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeAccountNotFound   = "ACCOUNT_NOT_FOUND"
	CodeInvalidAuction    = "INVALID_AUCTION"
	CodeInternal          = "INTERNAL"
)

// ErrorKind groups errors by how a caller should react to them
type ErrorKind string

const (
	ErrorKindValidation        ErrorKind = "validation"         // do not retry
	ErrorKindConflict          ErrorKind = "conflict"           // resubmit with a higher amount
	ErrorKindInsufficientFunds ErrorKind = "insufficient_funds" // do not retry
	ErrorKindPersistence       ErrorKind = "persistence"        // logged, fail closed
)

// ErrorCode maps err to its wire-level rejection code
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrBidTooLow):
		return CodeBidTooLow
	case errors.Is(err, ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, ErrAuctionNotFound):
		return CodeAuctionNotFound
	case errors.Is(err, ErrAuctionNotActive):
		return CodeAuctionNotActive
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrAccountNotFound):
		return CodeAccountNotFound
	case errors.Is(err, ErrInvalidAuction):
		return CodeInvalidAuction
	default:
		return CodeInternal
	}
}

// KindOf classifies err for retry and reporting decisions
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrBidTooLow):
		return ErrorKindConflict
	case errors.Is(err, ErrInsufficientFunds):
		return ErrorKindInsufficientFunds
	case errors.Is(err, ErrAuctionNotFound), errors.Is(err, ErrAuctionNotActive),
		errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrInvalidAuction):
		return ErrorKindValidation
	default:
		return ErrorKindPersistence
	}
}

// IsDomainError reports whether err is one of the sentinel rejections above
func IsDomainError(err error) bool {
	return err != nil && KindOf(err) != ErrorKindPersistence
}
