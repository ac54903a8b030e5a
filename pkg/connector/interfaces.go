/*-
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package connector

//go:generate mockgen -destination=mock_connector.go -package=connector github.com/kestrelmon/kestrel/pkg/connector Connector

import (
	"context"

	"github.com/kestrelmon/kestrel/pkg/models"
)

// Connector is the capability contract every monitoring backend implements.
// Every call is independently fallible; implementations return an empty
// result plus an error rather than letting a failure escape the boundary in
// any other form, so callers can treat "no data" and "backend down"
// uniformly for aggregation while reporting health distinctly.
type Connector interface {
	// Name identifies the backend, e.g. "prometheus".
	Name() string

	// HealthCheck reports whether the backend is reachable. Any error
	// counts as unhealthy.
	HealthCheck(ctx context.Context) (bool, error)

	// QueryMetrics executes a backend-native query.
	QueryMetrics(ctx context.Context, query string, opts models.QueryOptions) ([]models.MetricSample, error)

	// ActiveAlerts returns currently firing alerts, normalized.
	ActiveAlerts(ctx context.Context) ([]models.AlertRecord, error)

	// Services enumerates monitored services or resources.
	Services(ctx context.Context) ([]string, error)

	// MetricNames enumerates available metric names.
	MetricNames(ctx context.Context) ([]string, error)
}
