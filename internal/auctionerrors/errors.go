package auctionerrors

import (
	"errors"
	"fmt"
)

// Validation errors, detected before any network call.
var (
	ErrBidAmountMissing = errors.New("bid amount is required")
	ErrBidAmountInvalid = errors.New("bid amount is not a number")
	ErrBidTooLow        = errors.New("bid amount too low")
	ErrAuctionEnded     = errors.New("auction has ended")
	ErrInvalidItem      = errors.New("invalid item")
	ErrNotTracking      = errors.New("no auction is being tracked")
)

// Remote errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrChannelClosed   = errors.New("live channel is not connected")
)

type Kind int

const (
	KindValidation Kind = iota
	KindNetwork
	KindChannel
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindChannel:
		return "channel"
	default:
		return "unknown"
	}
}

// Error tags a cause with its category and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(op string, err error) error { return &Error{Kind: KindValidation, Op: op, Err: err} }
func Network(op string, err error) error    { return &Error{Kind: KindNetwork, Op: op, Err: err} }
func Channel(op string, err error) error    { return &Error{Kind: KindChannel, Op: op, Err: err} }

// KindOf classifies err. Untagged errors are treated as network failures
// since everything that is not checked locally came back from a remote call.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrBidAmountMissing),
		errors.Is(err, ErrBidAmountInvalid),
		errors.Is(err, ErrBidTooLow),
		errors.Is(err, ErrAuctionEnded),
		errors.Is(err, ErrInvalidItem),
		errors.Is(err, ErrNotTracking):
		return KindValidation
	case errors.Is(err, ErrChannelClosed):
		return KindChannel
	default:
		return KindNetwork
	}
}
