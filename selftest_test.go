package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"dndstake/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainNode answers eth_chainId with chainID and eth_blockNumber with 0x10.
func chainNode(t *testing.T, chainID string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		result := "0x10"
		if req.Method == "eth_chainId" {
			result = chainID
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSelfTest_FillsChainID(t *testing.T) {
	node := chainNode(t, "0x1cc3")
	path := filepath.Join(t.TempDir(), "cfg.json")
	cfg := config.Default()
	cfg.RPCURLs = []string{node.URL}

	var out bytes.Buffer
	report, ok := selfTest(cfg, path, false, false, &out)
	require.True(t, ok)
	assert.True(t, report.ConfigUpdated)
	assert.Empty(t, report.SaveError)
	assert.Equal(t, int64(7363), report.Chain.ObservedChainID)
	require.Len(t, report.Chain.RPCs, 1)
	assert.Equal(t, "ok", report.Chain.RPCs[0].Status)
	assert.Equal(t, uint64(16), report.Chain.RPCs[0].BlockNumber)
	assert.Contains(t, out.String(), "Configuration saved successfully.")

	saved, err := config.LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7363), saved.ChainID)
}

func TestSelfTest_DryRunDoesNotSave(t *testing.T) {
	node := chainNode(t, "0x1cc3")
	path := filepath.Join(t.TempDir(), "cfg.json")
	cfg := config.Default()
	cfg.RPCURLs = []string{node.URL}

	report, ok := selfTest(cfg, path, true, true, &bytes.Buffer{})
	require.True(t, ok)
	assert.True(t, report.ConfigUpdated)
	assert.True(t, report.DryRun)
	assert.NoFileExists(t, path)
}

func TestSelfTest_UnsupportedAndInconsistent(t *testing.T) {
	good := chainNode(t, "0x1cc3")
	other := chainNode(t, "0x1")
	cfg := config.Default()
	cfg.ChainID = 7363
	cfg.RPCURLs = []string{good.URL, other.URL, "http://127.0.0.1:1"}

	var out bytes.Buffer
	report, ok := selfTest(cfg, filepath.Join(t.TempDir(), "cfg.json"), false, false, &out)
	require.True(t, ok)
	assert.False(t, report.ConfigUpdated)
	assert.True(t, report.Chain.Inconsistent)
	assert.True(t, report.Chain.Unsupported)
	require.Len(t, report.Chain.RPCs, 3)
	assert.Equal(t, "error", report.Chain.RPCs[2].Status)
	assert.Equal(t, "Unsupported network! Expected 7363", report.Chain.RPCs[1].Error)
	assert.Contains(t, out.String(), "Inconsistent RPCs detected")
	assert.Contains(t, out.String(), "other than DynoChain (7363)")
}

func TestSelfTest_InvalidStructure(t *testing.T) {
	cfg := config.Default()
	cfg.RPCURLs = nil
	cfg.Account = "not-an-address"

	report, ok := selfTest(cfg, "cfg.json", false, true, &bytes.Buffer{})
	assert.False(t, ok)
	assert.False(t, report.ValidStructure)
	assert.Len(t, report.StructureErrors, 2)
}

func TestRootCmd_Version(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "dndstake version dev\n", out.String())
}

func TestRootCmd_TestJSON(t *testing.T) {
	node := chainNode(t, "0x1cc3")
	path := filepath.Join(t.TempDir(), "cfg.json")
	cfg := config.Default()
	cfg.RPCURLs = []string{node.URL}
	cfg.ChainID = 7363
	require.NoError(t, config.SaveConfig(cfg, path))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-t", "--json", "--config", path})
	require.NoError(t, cmd.Execute())

	var report struct {
		ValidStructure bool `json:"valid_structure"`
		Chain          struct {
			ObservedChainID int64 `json:"observed_chain_id"`
		} `json:"chain"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.True(t, report.ValidStructure)
	assert.Equal(t, int64(7363), report.Chain.ObservedChainID)
}
