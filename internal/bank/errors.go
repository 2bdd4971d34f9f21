package bank

import "errors"

var (
	ErrInputOutputMismatch = errors.New("input and output mismatch")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrArithmetic          = errors.New("arithmetic failure")

	ErrInvalidRate       = errors.New("invalid rate")
	ErrInvalidDefinition = errors.New("invalid denom definition")
	ErrInvalidMultiSend  = errors.New("invalid multisend")
)
