package handlers

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	appMMP "github.com/turtacn/KeyIP-MMP/internal/application/mmp"
	domainMMP "github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/tableio"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
)

// RunHandler exposes runs over HTTP.
type RunHandler struct {
	svc      appMMP.Service
	defaults domainMMP.Settings
	timeout  time.Duration
	maxBody  int64
	logger   logging.Logger
}

// RunHandlerConfig bounds request handling.
type RunHandlerConfig struct {
	// Defaults seed the settings of CSV uploads before query overrides.
	Defaults domainMMP.Settings
	// RunTimeout caps a synchronous run.  Zero disables the cap.
	RunTimeout time.Duration
	// MaxBodySize caps the request body.  Zero disables the cap.
	MaxBodySize int64
}

// NewRunHandler creates a RunHandler.
func NewRunHandler(svc appMMP.Service, cfg RunHandlerConfig, logger logging.Logger) *RunHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RunHandler{
		svc:      svc,
		defaults: cfg.Defaults,
		timeout:  cfg.RunTimeout,
		maxBody:  cfg.MaxBodySize,
		logger:   logger,
	}
}

// RegisterRoutes registers the run routes under r.
func (h *RunHandler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/mmp/runs", h.CreateRun)
	r.GET("/mmp/runs", h.ListRuns)
	r.GET("/mmp/runs/:id", h.GetRun)
	r.GET("/mmp/runs/:id/transformations", h.TopTransformations)
	r.GET("/mmp/runs/:id/molecules/:key/neighbors", h.Neighbors)
}

// CreateRun handles POST /mmp/runs.
//
// A JSON body is decoded as a RunRequest.  A text/csv body is the input
// table itself, configured through query parameters.  ?format=csv returns
// the pairs table instead of the summary.
func (h *RunHandler) CreateRun(c *gin.Context) {
	if h.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}

	req, err := h.decodeRunRequest(c)
	if err != nil {
		writeAppError(c, err)
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	summary, err := h.svc.Run(ctx, req)
	if err != nil {
		writeAppError(c, err)
		return
	}

	if strings.EqualFold(c.Query("format"), string(tableio.FormatCSV)) && summary.Result != nil {
		c.Header("X-Run-ID", summary.RunID)
		c.Header("Content-Type", tableio.FormatCSV.ContentType())
		c.Status(http.StatusOK)
		if err := tableio.Write(c.Writer, summary.Result.Pairs, tableio.FormatCSV); err != nil {
			h.logger.Error("failed to stream pairs table", logging.String("run_id", summary.RunID), logging.Err(err))
		}
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *RunHandler) decodeRunRequest(c *gin.Context) (*appMMP.RunRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mediaType == "text/csv" {
		t, err := tableio.Read(c.Request.Body, tableio.FormatCSV)
		if err != nil {
			return nil, err
		}
		settings, err := h.settingsFromQuery(c)
		if err != nil {
			return nil, err
		}
		return &appMMP.RunRequest{
			RunID:         c.Query("run_id"),
			Table:         t,
			Settings:      &settings,
			PairsOutput:   c.Query("pairs_output"),
			NetworkOutput: c.Query("network_output"),
		}, nil
	}

	var req appMMP.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if err == io.EOF {
			return nil, errors.InvalidParam("request body is empty")
		}
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid run request body")
	}
	return &req, nil
}

// settingsFromQuery overlays query parameters on the handler defaults.
// List parameters may repeat or be comma separated.
func (h *RunHandler) settingsFromQuery(c *gin.Context) (domainMMP.Settings, error) {
	s := h.defaults
	if v := c.Query("molecule_column"); v != "" {
		s.MoleculeColumn = v
	}
	if v := c.Query("id_column"); v != "" {
		s.IDColumn = v
	}
	if v := c.Query("connection_point"); v != "" {
		s.ConnectionPoint = v
	}
	if v, ok := c.GetQuery("precedence"); ok {
		p, err := domainMMP.ParsePrecedence(v)
		if err != nil {
			return s, err
		}
		s.Precedence = p
	}
	if vs := splitList(c.QueryArray("ratio")); vs != nil {
		s.RatioColumns = vs
	}
	if vs := splitList(c.QueryArray("diff")); vs != nil {
		s.DiffColumns = vs
	}
	for name, dst := range map[string]*bool{"use_row_key": &s.UseRowKey, "duplicates": &s.GenerateDuplicates} {
		v, ok := c.GetQuery(name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return s, errors.InvalidParam(name + " must be a boolean")
		}
		*dst = b
	}
	return s, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ListRuns handles GET /mmp/runs.
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		writeAppError(c, err)
		return
	}
	runs, err := h.svc.ListRuns(c.Request.Context(), limit)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun handles GET /mmp/runs/:id.
func (h *RunHandler) GetRun(c *gin.Context) {
	run, err := h.svc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// TopTransformations handles GET /mmp/runs/:id/transformations.
func (h *RunHandler) TopTransformations(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		writeAppError(c, err)
		return
	}
	top, err := h.svc.TopTransformations(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": c.Param("id"), "transformations": top})
}

// Neighbors handles GET /mmp/runs/:id/molecules/:key/neighbors.
func (h *RunHandler) Neighbors(c *gin.Context) {
	nodes, err := h.svc.Neighbors(c.Request.Context(), c.Param("id"), c.Param("key"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": c.Param("id"), "key": c.Param("key"), "neighbors": nodes})
}

//Personal.AI order the ending
