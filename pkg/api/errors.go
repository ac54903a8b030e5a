package api

import "errors"

var (
	errBadSigningMethod = errors.New("unexpected token signing method")
)
