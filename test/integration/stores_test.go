package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appMMP "github.com/turtacn/KeyIP-MMP/internal/application/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/config"
	domainMMP "github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-MMP/pkg/types/table"
)

// TestStores_RunIsQueryable needs postgres and neo4j enabled in the config
// named by MMP_TEST_CONFIG.
func TestStores_RunIsQueryable(t *testing.T) {
	cfg, err := config.Load(requireStores(t))
	require.NoError(t, err)
	require.True(t, cfg.Database.Postgres.Enabled, "postgres must be enabled")
	require.True(t, cfg.Neo4j.Enabled, "neo4j must be enabled")
	require.NoError(t, postgres.RunMigrations(postgres.BuildDSN(cfg.Database.Postgres), ""))

	s := newStack(t, cfg)
	in := table.New(
		table.Column{Name: cfg.MMP.MoleculeColumn, Type: table.TypeSmiles},
	)
	in.MustAppend("", table.String(chlorobenzene))
	in.MustAppend("", table.String(bromobenzene))

	ctx := context.Background()
	settings := domainMMP.Settings{MoleculeColumn: cfg.MMP.MoleculeColumn, UseRowKey: true}
	summary, err := s.App.Service.Run(ctx, &appMMP.RunRequest{Table: in, Settings: &settings})
	require.NoError(t, err)

	resp, err := http.Get(s.Server.URL + "/api/v1/mmp/runs/" + summary.RunID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	assert.Equal(t, "completed", run.Status)

	top, err := s.App.Service.TopTransformations(ctx, summary.RunID, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, top)

	neighbors, err := s.App.Service.Neighbors(ctx, summary.RunID, table.DefaultRowKey(0))
	require.NoError(t, err)
	assert.Len(t, neighbors, 1)
}

//Personal.AI order the ending
