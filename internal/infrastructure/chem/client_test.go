package chem

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-MMP/pkg/errors"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, WithRetryWait(time.Millisecond, 5*time.Millisecond))
	require.NoError(t, err)
	return c, srv
}

func decode(t *testing.T, r *http.Request) string {
	t.Helper()
	var req smilesRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req.Smiles
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
	_, err = NewClient("ftp://toolkit")
	assert.Error(t, err)
	c, err := NewClient("http://toolkit:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://toolkit:8080", c.baseURL)
}

func TestClient_Operations(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		smiles := decode(t, r)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/parse":
			_ = json.NewEncoder(w).Encode(map[string]string{"smiles": smiles})
		case "/v1/canonical":
			_ = json.NewEncoder(w).Encode(map[string]string{"smiles": "c1ccccc1Cl"})
		case "/v1/single-cut":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"pairs": [][2]string{{"c1ccccc1[*]", "[*]Cl"}}})
		case "/v1/atom-count":
			_ = json.NewEncoder(w).Encode(map[string]int{"count": 7})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	mol, err := c.Parse(ctx, "Clc1ccccc1")
	require.NoError(t, err)
	assert.Equal(t, "Clc1ccccc1", mol.Smiles())

	canon, err := c.CanonicalSmiles(ctx, mol)
	require.NoError(t, err)
	assert.Equal(t, "c1ccccc1Cl", canon)

	cuts, err := c.ApplySingleCutReaction(ctx, mol)
	require.NoError(t, err)
	require.Len(t, cuts, 1)
	assert.Equal(t, "c1ccccc1[*]", cuts[0].A.Smiles())
	assert.Equal(t, "[*]Cl", cuts[0].B.Smiles())

	n, err := c.AtomCount(ctx, mol)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestClient_ChemistryErrorIsNotRetried(t *testing.T) {
	var calls int32
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":"BAD_VALENCE","message":"explicit valence for N is 4"}`))
	})

	_, err := c.Parse(context.Background(), "N(C)(C)(C)C")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidSMILES))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "BAD_VALENCE", apiErr.Code)
	assert.NotEmpty(t, apiErr.RequestID)

	_, err = c.ApplySingleCutReaction(context.Background(), NewMolecule("C"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeFragmentationFailed))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"count": 3})
	})

	n, err := c.AtomCount(context.Background(), NewMolecule("CCO"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_ExhaustedRetriesAreUnavailable(t *testing.T) {
	var calls int32
	var observed []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	c, err := NewClient(srv.URL,
		WithRetryMax(2),
		WithRetryWait(time.Millisecond, 2*time.Millisecond),
		WithObserver(func(op, status string, _ time.Duration) { observed = append(observed, op+":"+status) }),
	)
	require.NoError(t, err)

	_, err = c.CanonicalSmiles(context.Background(), NewMolecule("CCO"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolkitUnavailable))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []string{"canonical:500", "canonical:500", "canonical:500"}, observed)
}

func TestClient_ClientErrorIsFatal(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := c.Parse(context.Background(), "C")
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolkitUnavailable))
}

func TestClient_ContextCancelled(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Parse(ctx, "C")
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))
}

func TestClient_Ping(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})
	assert.NoError(t, c.Ping(context.Background()))
	healthy.Store(false)
	assert.True(t, errors.IsCode(c.Ping(context.Background()), errors.ErrCodeToolkitUnavailable))
}

func TestBackoff_Bounded(t *testing.T) {
	c := &Client{retryWaitMin: 10 * time.Millisecond, retryWaitMax: 40 * time.Millisecond}
	for attempt := 1; attempt < 8; attempt++ {
		d := c.backoff(attempt)
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.LessOrEqual(t, d, 50*time.Millisecond)
	}
}

//Personal.AI order the ending
