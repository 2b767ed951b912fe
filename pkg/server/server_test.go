package server

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dndstake/pkg/metrics"
	"dndstake/pkg/models"
	"dndstake/pkg/network"
	"dndstake/pkg/store"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *store.Store {
	st := store.New(nil, nil)
	st.SetNetwork(network.DND, nil)
	st.SetBlockNumber(77)
	st.MergeValidators(models.ValidatorSet{Validators: []models.ValidatorStake{
		{ValidatorID: "0xaaaa", TotalStake: "1"},
		{ValidatorID: "0xbbbb", TotalStake: "5"},
	}})
	return st
}

func TestHandleStatus(t *testing.T) {
	s := NewServer(newTestStore(), nil, log.New(io.Discard))

	req, _ := http.NewRequest("GET", "/api/status", nil)
	rr := httptest.NewRecorder()

	s.mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Dashboard map[string]interface{} `json:"dashboard"`
	}
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Equal(t, 77.0, resp.Dashboard["block_number"])
	assert.Equal(t, false, resp.Dashboard["network_mismatch"])
}

func TestHandleValidators(t *testing.T) {
	s := NewServer(newTestStore(), nil, log.New(io.Discard))

	req, _ := http.NewRequest("GET", "/api/validators", nil)
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)

	var resp struct {
		Selected   string                  `json:"selected"`
		Validators []models.ValidatorStake `json:"validators"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "0xaaaa", resp.Selected)
	require.Len(t, resp.Validators, 2)
	assert.Equal(t, "0xbbbb", resp.Validators[0].ValidatorID)
}

func TestHandleMetrics(t *testing.T) {
	st := newTestStore()
	exp := metrics.NewExporter(st, "")
	exp.Update()
	s := NewServer(st, exp.Registry(), log.New(io.Discard))

	req, _ := http.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `dndstake_block_number{chain_id="7363"} 77`)
}

func TestMetricsNotMountedWithoutGatherer(t *testing.T) {
	s := NewServer(newTestStore(), nil, log.New(io.Discard))

	req, _ := http.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleWS(t *testing.T) {
	st := newTestStore()
	s := NewServer(st, nil, log.New(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.listenToStore(ctx)

	server := httptest.NewServer(s.mux)
	defer server.Close()

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer func() { _ = ws.Close() }()

	// Read initial state
	var msg map[string]interface{}
	err = ws.ReadJSON(&msg)
	assert.NoError(t, err)
	assert.Equal(t, "initial", msg["type"])

	// Events keep flowing until the client sees the update.
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	go func() {
		for i := 0; i < 20; i++ {
			st.SetTotalStake(big.NewInt(int64(i + 1)))
			time.Sleep(20 * time.Millisecond)
		}
	}()
	var ev store.Event
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, store.EventTotalStakeUpdated, ev.Type)
}
