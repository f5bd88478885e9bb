package entity

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidPaymentChange = errors.New("payment status can only change from pending")
)
