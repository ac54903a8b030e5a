package azure

import "errors"

var (
	errHealthCheck   = errors.New("azure health check failed")
	errTokenAcquire  = errors.New("failed to acquire access token")
	errTokenStatus   = errors.New("token endpoint returned non-200 status")
	errEmptyToken    = errors.New("token response contained no access token")
	errMetricsQuery  = errors.New("azure metrics query failed")
	errLogQuery      = errors.New("log analytics query failed")
	errAlertsQuery   = errors.New("azure alerts query failed")
	errListResources = errors.New("azure resource listing failed")
	errNoWorkspace   = errors.New("no log analytics workspace configured")
	errDecode        = errors.New("failed to decode azure response")
)
