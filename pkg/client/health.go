package client

import (
	"context"
	"net/http"

	"github.com/vaultkit/vault-client/pkg/api"
)

// HealthResponse is the server health status.
type HealthResponse struct {
	Initialized                bool   `json:"initialized"`
	Sealed                     bool   `json:"sealed"`
	Standby                    bool   `json:"standby"`
	PerformanceStandby         bool   `json:"performance_standby"`
	ReplicationPerformanceMode string `json:"replication_performance_mode"`
	ReplicationDRMode          string `json:"replication_dr_mode"`
	ServerTimeUTC              int64  `json:"server_time_utc"`
	Version                    string `json:"version"`
	ClusterName                string `json:"cluster_name"`
	ClusterID                  string `json:"cluster_id"`
}

// IsHealthy returns true for an initialized, unsealed active node.
func (h *HealthResponse) IsHealthy() bool {
	return h.Initialized && !h.Sealed && !h.Standby
}

// HealthClient reads sys/health.
type HealthClient struct {
	mount
}

// Health returns the server status. A standby node (429) is reported
// normally; any other non-200 status, such as 501 (not initialized) or 503
// (sealed), is returned as a *RequestError.
func (h *HealthClient) Health(ctx context.Context) (*HealthResponse, error) {
	resp, err := h.read(ctx, []string{"health"},
		WithAcceptedStatus(http.StatusOK, http.StatusTooManyRequests))
	if err != nil {
		return nil, err
	}
	var out HealthResponse
	if err := resp.decodeContract(api.ContractHealth, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
