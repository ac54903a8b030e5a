package config

import "errors"

var (
	errNoListenAddr = errors.New("listen_addr is required")
	errNoJWTSecret  = errors.New("jwt_secret is required when auth is enabled")
)
