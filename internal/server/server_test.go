package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pff-protocol/presence-core/internal/authreq"
	"github.com/pff-protocol/presence-core/internal/binding"
	"github.com/pff-protocol/presence-core/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	resolver := binding.NewMemoryLicenseResolver()
	resolver.Grant(binding.License{
		ID:         "lic-1",
		Owner:      "+2348000000001",
		Tier:       binding.TierPersonalMulti,
		MaxDevices: 3,
		Active:     true,
	})
	ledger := binding.NewLedger(binding.NewMemoryStore(), resolver)
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0, Timeout: 5 * time.Second, Name: "presenced-test"},
		Broker: config.BrokerConfig{RequestTTL: time.Minute, SweepInterval: time.Second, PollInterval: 10 * time.Millisecond},
	}
	broker := authreq.NewBroker(authreq.NewMemoryStore(), authreq.NewMemoryNotifier(), ledger, cfg.Broker)

	srv := NewServer(cfg, broker)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestCreateAndResolveOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/requests", map[string]interface{}{
		"identity_anchor": "+2348000000001",
		"device":          map[string]string{"type": "LAPTOP", "name": "work laptop"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created struct {
		RequestID string `json:"request_id"`
		Status    string `json:"status"`
	}
	decodeBody(t, resp, &created)
	assert.Equal(t, "PENDING", created.Status)
	require.NotEmpty(t, created.RequestID)

	// Status is readable while pending.
	getResp, err := http.Get(fmt.Sprintf("%s/v1/requests/%s", ts.URL, created.RequestID))
	require.NoError(t, err)
	var status struct {
		Status string `json:"status"`
	}
	decodeBody(t, getResp, &status)
	assert.Equal(t, "PENDING", status.Status)

	// Approve with a freshly minted session token.
	token := authreq.MintToken("+2348000000001", "phone-fp")
	resolveResp := postJSON(t, fmt.Sprintf("%s/v1/requests/%s/resolve", ts.URL, created.RequestID), map[string]interface{}{
		"decision": "APPROVE",
		"token":    token,
	})
	require.Equal(t, http.StatusOK, resolveResp.StatusCode)
	var resolved struct {
		Status string `json:"status"`
	}
	decodeBody(t, resolveResp, &resolved)
	assert.Equal(t, "APPROVED", resolved.Status)

	// A second resolve conflicts.
	again := postJSON(t, fmt.Sprintf("%s/v1/requests/%s/resolve", ts.URL, created.RequestID), map[string]interface{}{
		"decision": "DENY",
		"token":    authreq.MintToken("+2348000000001", "phone-fp"),
	})
	defer again.Body.Close()
	assert.Equal(t, http.StatusConflict, again.StatusCode)
}

func TestCreateRequestValidation(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/requests", map[string]interface{}{
		"device": map[string]string{"type": "LAPTOP"},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResolveValidation(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/requests", map[string]interface{}{
		"identity_anchor": "+2348000000001",
		"device":          map[string]string{"type": "LAPTOP"},
	})
	var created struct {
		RequestID string `json:"request_id"`
	}
	decodeBody(t, resp, &created)

	// Unknown decision.
	bad := postJSON(t, fmt.Sprintf("%s/v1/requests/%s/resolve", ts.URL, created.RequestID), map[string]interface{}{
		"decision": "MAYBE",
		"token":    authreq.MintToken("+2348000000001", "phone-fp"),
	})
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	// Tampered token.
	token := authreq.MintToken("+2348000000001", "phone-fp")
	token.Signature = "0000"
	unauthorized := postJSON(t, fmt.Sprintf("%s/v1/requests/%s/resolve", ts.URL, created.RequestID), map[string]interface{}{
		"decision": "APPROVE",
		"token":    token,
	})
	defer unauthorized.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, unauthorized.StatusCode)

	// Token minted for a different identity.
	forbidden := postJSON(t, fmt.Sprintf("%s/v1/requests/%s/resolve", ts.URL, created.RequestID), map[string]interface{}{
		"decision": "APPROVE",
		"token":    authreq.MintToken("+2348000000099", "phone-fp"),
	})
	defer forbidden.Body.Close()
	assert.Equal(t, http.StatusForbidden, forbidden.StatusCode)

	// Unknown request id.
	missing := postJSON(t, ts.URL+"/v1/requests/does-not-exist/resolve", map[string]interface{}{
		"decision": "APPROVE",
		"token":    authreq.MintToken("+2348000000001", "phone-fp"),
	})
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "presenced-test", body["name"])
}
