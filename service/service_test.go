package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-spec/metrics"
	"github.com/ethereum-optimism/infra/op-spec/types"
)

func TestHandler(t *testing.T) {
	s := New(log.NewLogger(log.DiscardHandler()))
	metrics.RecordCase("service-suite", types.StatusPassed, 1, 0)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://dashboard.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, string(body), `opspec_cases_total{result="passed",suite="service-suite"}`)
}

func TestStartStop(t *testing.T) {
	s := New(log.NewLogger(log.DiscardHandler()))
	assert.Empty(t, s.Addr())
	require.NoError(t, s.Start(context.Background(), "127.0.0.1:0"))

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}

func TestStartFailsOnBadAddress(t *testing.T) {
	s := New(log.NewLogger(log.DiscardHandler()))
	require.Error(t, s.Start(context.Background(), "not-an-address"))
}
