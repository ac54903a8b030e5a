package prometheus

import "errors"

var (
	errHealthCheck  = errors.New("prometheus health check failed")
	errQuery        = errors.New("prometheus query failed")
	errQueryStatus  = errors.New("prometheus query returned non-success")
	errDecode       = errors.New("failed to decode prometheus response")
	errAlertmanager = errors.New("alertmanager request failed")
)
