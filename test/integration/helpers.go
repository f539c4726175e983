// Package integration exercises the MMP stack end to end: config, toolkit
// cache, engine, service, HTTP API and the optional stores.
package integration

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-MMP/internal/config"
	"github.com/turtacn/KeyIP-MMP/internal/interfaces/cli"
	httpapi "github.com/turtacn/KeyIP-MMP/internal/interfaces/http"
	"github.com/turtacn/KeyIP-MMP/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-MMP/internal/testutil"
)

// ---------------------------------------------------------------------------
// Environment detection
// ---------------------------------------------------------------------------

const (
	// EnvIntegrationEnabled enables the tests that need live stores.
	EnvIntegrationEnabled = "MMP_INTEGRATION_TEST"

	// EnvConfigPath points at a config with postgres and neo4j enabled.
	EnvConfigPath = "MMP_TEST_CONFIG"
)

// requireDocker skips unless integration tests are enabled.  Container
// tests start their own stores and need only a Docker daemon.
func requireDocker(t *testing.T) {
	t.Helper()
	if os.Getenv(EnvIntegrationEnabled) == "" {
		t.Skipf("set %s=1 to run container-backed tests", EnvIntegrationEnabled)
	}
}

// requireStores skips unless live stores are configured.
func requireStores(t *testing.T) string {
	t.Helper()
	if os.Getenv(EnvIntegrationEnabled) == "" {
		t.Skipf("set %s=1 and %s to run against live stores", EnvIntegrationEnabled, EnvConfigPath)
	}
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		t.Skipf("%s is not set", EnvConfigPath)
	}
	return path
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const (
	chlorobenzene = "c1ccccc1Cl"
	bromobenzene  = "c1ccccc1Br"
	fluorobenzene = "c1ccccc1F"
	phenylContext = "c1ccccc1[*]"
)

// halogenCSV is a three-compound series sharing one context.
const halogenCSV = "Smiles,Name,pIC50,Solubility\n" +
	chlorobenzene + ",chloro,6.5,2.0\n" +
	bromobenzene + ",bromo,7.0,1.0\n" +
	fluorobenzene + ",fluoro,5.5,4.0\n"

func newHalogenToolkit() *testutil.FakeToolkit {
	tk := testutil.NewFakeToolkit()
	for _, s := range []struct{ smiles, frag string }{
		{chlorobenzene, "[*]Cl"},
		{bromobenzene, "[*]Br"},
		{fluorobenzene, "[*]F"},
	} {
		tk.AddBidirectionalCut(s.smiles, phenylContext, s.frag)
	}
	return tk
}

// loadConfig writes yaml to a temp file and loads it through the real loader.
func loadConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mmp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

// stack is one wired application behind a live HTTP listener.
type stack struct {
	App     *cli.App
	Toolkit *testutil.FakeToolkit
	Server  *httptest.Server
}

// newStack wires cfg with a fresh fake toolkit.
func newStack(t *testing.T, cfg *config.Config) *stack {
	t.Helper()
	tk := newHalogenToolkit()
	app, err := cli.NewAppWithToolkit(context.Background(), cfg, testutil.NewMockLogger(), tk)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Mode: "test",
		RunHandler: handlers.NewRunHandler(app.Service, handlers.RunHandlerConfig{
			Defaults:    cfg.MMP,
			RunTimeout:  cfg.Server.RunTimeout,
			MaxBodySize: cfg.Server.MaxBodySize,
		}, app.Logger),
		HealthHandler:    handlers.NewHealthHandler("test", app.Checkers...),
		Logger:           app.Logger,
		MetricsCollector: app.Collector,
		Metrics:          app.Metrics,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &stack{App: app, Toolkit: tk, Server: srv}
}

//Personal.AI order the ending
