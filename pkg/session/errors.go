package session

import "errors"

var (
	errOpenDB        = errors.New("failed to open database")
	errEnableWAL     = errors.New("failed to enable WAL mode")
	errInitSchema    = errors.New("failed to initialize schema")
	errBeginTx       = errors.New("failed to begin transaction")
	errSaveMessage   = errors.New("failed to save message")
	errTrimSession   = errors.New("failed to trim session")
	errQueryMessages = errors.New("failed to query messages")
	errScanRow       = errors.New("failed to scan row")
	errClearSession  = errors.New("failed to clear session")
)
