package models

import "errors"

var (
	errInvalidDuration = errors.New("invalid duration")
	errEmptyRange      = errors.New("empty time range")
	errInvalidRange    = errors.New("invalid time range")
)
