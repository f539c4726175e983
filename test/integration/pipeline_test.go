package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainMMP "github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/tableio"
)

const baseYAML = `
log:
  level: error
mmp:
  molecule_column: Smiles
  id_column: Name
  diff_columns: [pIC50]
  ratio_columns: [Solubility]
metrics:
  enabled: true
`

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestPipeline_CSVUploadReturnsPairs(t *testing.T) {
	s := newStack(t, loadConfig(t, baseYAML))

	resp, err := http.Post(s.Server.URL+"/api/v1/mmp/runs?format=csv", "text/csv", bytes.NewBufferString(halogenCSV))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Run-ID"))

	pairs, err := tableio.Read(resp.Body, tableio.FormatCSV)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pairs.Len(), 3, "three halogens give three unordered pairs")
	for _, col := range []string{domainMMP.ColTransformation, domainMMP.ColIDL, domainMMP.ColIDR} {
		assert.GreaterOrEqual(t, pairs.ColumnIndex(col), 0, col)
	}

	metrics, err := http.Get(s.Server.URL + "/metrics")
	require.NoError(t, err)
	body := readBody(t, metrics)
	metrics.Body.Close()
	assert.Contains(t, body, `route="/api/v1/mmp/runs"`)
	assert.Contains(t, body, "runs_total")
}

func TestPipeline_LocalFilesAndProbes(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "halogens.csv")
	require.NoError(t, os.WriteFile(input, []byte(halogenCSV), 0o644))
	s := newStack(t, loadConfig(t, baseYAML))

	resp := postJSON(t, s.Server.URL+"/api/v1/mmp/runs", map[string]string{
		"input":          input,
		"pairs_output":   filepath.Join(dir, "pairs.json"),
		"network_output": filepath.Join(dir, "network.csv"),
	})
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	var summary struct {
		Status          string          `json:"status"`
		Stats           domainMMP.Stats `json:"stats"`
		PairsLocation   string          `json:"pairs_location"`
		NetworkLocation string          `json:"network_location"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &summary))
	assert.Equal(t, "completed", summary.Status)
	assert.Equal(t, 3, summary.Stats.InputRows)

	pairs, err := tableio.ReadFile(summary.PairsLocation)
	require.NoError(t, err)
	assert.Equal(t, summary.Stats.OutputRows, pairs.Len())

	network, err := tableio.ReadFile(summary.NetworkLocation)
	require.NoError(t, err)
	assert.Equal(t, 3, network.Len())

	ready, err := http.Get(s.Server.URL + "/readyz")
	require.NoError(t, err)
	ready.Body.Close()
	assert.Equal(t, http.StatusOK, ready.StatusCode)

	runs, err := http.Get(s.Server.URL + "/api/v1/mmp/runs")
	require.NoError(t, err)
	runs.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, runs.StatusCode, "run history needs postgres")
}

func TestPipeline_RedisSharesToolkitResultsAcrossProcesses(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := fmt.Sprintf("%sredis:\n  enabled: true\n  addr: %s\n", baseYAML, mr.Addr())
	first := newStack(t, loadConfig(t, cfg))
	second := newStack(t, loadConfig(t, cfg))

	for _, s := range []*stack{first, second} {
		resp, err := http.Post(s.Server.URL+"/api/v1/mmp/runs", "text/csv", bytes.NewBufferString(halogenCSV))
		require.NoError(t, err)
		body := readBody(t, resp)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
	}

	assert.Positive(t, first.Toolkit.Calls("canonical"))
	assert.Zero(t, second.Toolkit.Calls("canonical"), "canonical SMILES come from redis")
	assert.Zero(t, second.Toolkit.Calls("atoms"), "atom counts come from redis")
	assert.Positive(t, second.Toolkit.Calls("parse"), "parsing is never shared")

	ready, err := http.Get(second.Server.URL + "/readyz")
	require.NoError(t, err)
	defer ready.Body.Close()
	assert.Contains(t, readBody(t, ready), `"redis"`)
}

//Personal.AI order the ending
