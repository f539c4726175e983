// Package mmp orchestrates matched molecular pair runs: it loads the input
// table, drives the engine, writes the output tables and fans the result
// out to the optional stores and the event stream.
package mmp

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainMMP "github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	neo4jrepo "github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/neo4j/repositories"
	pgrepo "github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
	"github.com/turtacn/KeyIP-MMP/pkg/types/common"
	"github.com/turtacn/KeyIP-MMP/pkg/types/table"
)

// Sink labels used for metrics.
const (
	sinkTables   = "tables"
	sinkPostgres = "postgres"
	sinkNeo4j    = "neo4j"
	sinkKafka    = "kafka"
)

// ---------------------------------------------------------------------------
// Request / Response DTOs
// ---------------------------------------------------------------------------

// RunRequest describes one run.  Exactly one of Input and Table is used;
// Table wins when both are set.  Nil Settings selects the service defaults.
type RunRequest struct {
	RunID         string              `json:"run_id,omitempty"`
	Input         string              `json:"input,omitempty"`
	Table         *table.Table        `json:"table,omitempty"`
	Settings      *domainMMP.Settings `json:"settings,omitempty"`
	PairsOutput   string              `json:"pairs_output,omitempty"`
	NetworkOutput string              `json:"network_output,omitempty"`
}

// RunSummary is the outcome of a finished run.
type RunSummary struct {
	RunID           string              `json:"run_id"`
	Status          common.RunStatus    `json:"status"`
	Stats           domainMMP.Stats     `json:"stats"`
	Warnings        []domainMMP.Warning `json:"warnings,omitempty"`
	PairsLocation   string              `json:"pairs_location,omitempty"`
	NetworkLocation string              `json:"network_location,omitempty"`
	StartedAt       time.Time           `json:"started_at"`
	FinishedAt      time.Time           `json:"finished_at"`

	// Result holds the in-memory tables for callers that render them.
	Result *domainMMP.Result `json:"-"`
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Runner executes the pair analysis.  *domainMMP.Engine implements it.
type Runner interface {
	Run(ctx context.Context, input *table.Table, s domainMMP.Settings) (*domainMMP.Result, error)
}

// Service is the application entry point for runs.
type Service interface {
	Run(ctx context.Context, req *RunRequest) (*RunSummary, error)
	GetRun(ctx context.Context, id string) (*pgrepo.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]*pgrepo.RunRecord, error)
	TopTransformations(ctx context.Context, runID string, limit int) ([]pgrepo.TransformationCount, error)
	Neighbors(ctx context.Context, runID, key string) ([]neo4jrepo.MoleculeNode, error)
}

// Deps carries the collaborators of the service.  Engine and Tables are
// required; every other store is optional.
type Deps struct {
	Engine   Runner
	Tables   TableRepository
	Defaults domainMMP.Settings

	Runs    pgrepo.RunRepository
	Pairs   pgrepo.PairRepository
	Network neo4jrepo.NetworkRepository
	Events  EventPublisher
	Metrics *prometheus.MMPMetrics
	Logger  logging.Logger
}

type runService struct {
	engine   Runner
	tables   TableRepository
	defaults domainMMP.Settings
	runs     pgrepo.RunRepository
	pairs    pgrepo.PairRepository
	network  neo4jrepo.NetworkRepository
	events   EventPublisher
	metrics  *prometheus.MMPMetrics
	logger   logging.Logger
	now      func() time.Time
}

// NewService validates d and builds a Service.
func NewService(d Deps) (Service, error) {
	if d.Engine == nil {
		return nil, errors.InvalidParam("mmp service: engine is required")
	}
	if d.Tables == nil {
		return nil, errors.InvalidParam("mmp service: table repository is required")
	}
	if d.Logger == nil {
		d.Logger = logging.NewNopLogger()
	}
	return &runService{
		engine:   d.Engine,
		tables:   d.Tables,
		defaults: d.Defaults,
		runs:     d.Runs,
		pairs:    d.Pairs,
		network:  d.Network,
		events:   d.Events,
		metrics:  d.Metrics,
		logger:   d.Logger,
		now:      time.Now,
	}, nil
}

// Run executes req end to end.  Table outputs are part of the run and their
// failure fails it; store and event fan-out failures are logged only.
func (s *runService) Run(ctx context.Context, req *RunRequest) (*RunSummary, error) {
	if req == nil || (req.Input == "" && req.Table == nil) {
		return nil, errors.InvalidParam("mmp run: input location or table is required")
	}
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	} else if _, err := uuid.Parse(runID); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeValidation, "mmp run: invalid run id %q", runID)
	}
	settings := s.defaults
	if req.Settings != nil {
		settings = *req.Settings
	}

	log := s.logger.With(logging.String("run_id", runID))
	summary := &RunSummary{RunID: runID, Status: common.RunStatusRunning, StartedAt: s.now()}
	if s.metrics != nil {
		s.metrics.ActiveRuns.WithLabelValues().Inc()
		defer s.metrics.ActiveRuns.WithLabelValues().Dec()
	}
	s.recordStart(ctx, summary, req, settings)
	log.Info("mmp run started", logging.String("input", inputLabel(req)))

	input := req.Table
	if input == nil {
		var err error
		if input, err = s.tables.Load(ctx, req.Input); err != nil {
			return nil, s.fail(ctx, summary, errors.Wrapf(err, codeOf(err), "mmp run: load %s", req.Input))
		}
	}

	res, err := s.engine.Run(ctx, input, settings)
	if err != nil {
		return nil, s.fail(ctx, summary, err)
	}
	summary.Result = res
	summary.Stats = res.Stats
	summary.Warnings = res.Warnings
	for _, w := range res.Warnings {
		log.Warn("mmp run warning", logging.String("warning", w.String()))
	}

	if summary.PairsLocation, err = s.writeOutput(ctx, runID, "pairs", req.PairsOutput, res.Pairs); err != nil {
		return nil, s.fail(ctx, summary, err)
	}
	if summary.NetworkLocation, err = s.writeOutput(ctx, runID, "network", req.NetworkOutput, res.Network); err != nil {
		return nil, s.fail(ctx, summary, err)
	}

	s.persistPairs(ctx, runID, res)
	s.persistNetwork(ctx, runID, input, settings, res)

	summary.Status = common.RunStatusCompleted
	summary.FinishedAt = s.now()
	s.recordFinish(ctx, summary, "")
	s.publish(ctx, kafka.TopicRunCompleted, runID, RunCompletedEvent{
		RunID:           runID,
		Stats:           summary.Stats,
		Warnings:        len(summary.Warnings),
		PairsLocation:   summary.PairsLocation,
		NetworkLocation: summary.NetworkLocation,
		DurationMs:      summary.FinishedAt.Sub(summary.StartedAt).Milliseconds(),
	})
	log.Info("mmp run finished",
		logging.Int("pairs", summary.Stats.PairsEmitted),
		logging.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))
	return summary, nil
}

// fail records a terminal failure and returns err.  Bookkeeping runs on a
// context detached from cancellation so cancelled runs are still recorded.
func (s *runService) fail(ctx context.Context, summary *RunSummary, err error) error {
	summary.Status = common.RunStatusFailed
	if errors.IsCancelled(err) {
		summary.Status = common.RunStatusCancelled
	}
	summary.FinishedAt = s.now()
	bg := context.WithoutCancel(ctx)
	s.recordFinish(bg, summary, err.Error())
	s.publish(bg, kafka.TopicRunFailed, summary.RunID, RunFailedEvent{
		RunID:  summary.RunID,
		Status: summary.Status,
		Code:   errors.GetCode(err),
		Error:  err.Error(),
	})
	s.logger.Error("mmp run failed",
		logging.String("run_id", summary.RunID),
		logging.String("status", string(summary.Status)),
		logging.Err(err))
	return err
}

func (s *runService) writeOutput(ctx context.Context, runID, name, location string, t *table.Table) (string, error) {
	if location == "" {
		location = s.tables.RunLocation(runID, name)
	}
	if location == "" || t == nil {
		return "", nil
	}
	err := s.tables.Save(ctx, location, t)
	s.recordSink(sinkTables, err)
	if err != nil {
		return "", errors.Wrapf(err, codeOf(err), "mmp run: write %s table to %s", name, location)
	}
	return location, nil
}

func (s *runService) recordStart(ctx context.Context, summary *RunSummary, req *RunRequest, settings domainMMP.Settings) {
	if s.runs == nil {
		return
	}
	err := s.runs.Create(ctx, &pgrepo.RunRecord{
		ID:        summary.RunID,
		Status:    common.RunStatusRunning,
		Input:     inputLabel(req),
		Settings:  settings,
		StartedAt: summary.StartedAt,
	})
	s.recordSink(sinkPostgres, err)
	if err != nil {
		s.logger.Warn("failed to record run start", logging.String("run_id", summary.RunID), logging.Err(err))
	}
}

func (s *runService) recordFinish(ctx context.Context, summary *RunSummary, errMsg string) {
	if s.metrics != nil {
		s.metrics.RecordRun(string(summary.Status), summary.FinishedAt.Sub(summary.StartedAt), prometheus.RunStats{
			InputRows:   summary.Stats.InputRows,
			SkippedRows: summary.Stats.SkippedRows,
			Contexts:    summary.Stats.Contexts,
			Pairs:       summary.Stats.PairsEmitted,
		})
	}
	if s.runs == nil {
		return
	}
	err := s.runs.Finish(ctx, summary.RunID, summary.Status, summary.Stats, errMsg)
	s.recordSink(sinkPostgres, err)
	if err != nil {
		s.logger.Warn("failed to record run finish", logging.String("run_id", summary.RunID), logging.Err(err))
	}
}

func (s *runService) persistPairs(ctx context.Context, runID string, res *domainMMP.Result) {
	if s.pairs == nil || res.Pairs == nil {
		return
	}
	n, err := s.pairs.SavePairs(ctx, runID, res.Pairs)
	s.recordSink(sinkPostgres, err)
	if err != nil {
		s.logger.Warn("failed to store pairs", logging.String("run_id", runID), logging.Err(err))
		return
	}
	s.logger.Debug("pairs stored", logging.String("run_id", runID), logging.Int64("rows", n))
}

func (s *runService) persistNetwork(ctx context.Context, runID string, input *table.Table, settings domainMMP.Settings, res *domainMMP.Result) {
	if s.network == nil {
		return
	}
	g := buildNetworkGraph(runID, input, settings, res)
	err := s.network.SaveNetwork(ctx, g)
	s.recordSink(sinkNeo4j, err)
	if err != nil {
		s.logger.Warn("failed to store network", logging.String("run_id", runID), logging.Err(err))
		return
	}
	s.logger.Debug("network stored",
		logging.String("run_id", runID),
		logging.Int("nodes", len(g.Nodes)),
		logging.Int("edges", len(g.Edges)))
}

func (s *runService) recordSink(sink string, err error) {
	if s.metrics != nil {
		s.metrics.RecordSinkWrite(sink, err)
	}
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func (s *runService) GetRun(ctx context.Context, id string) (*pgrepo.RunRecord, error) {
	if s.runs == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "run history is disabled")
	}
	return s.runs.Get(ctx, id)
}

func (s *runService) ListRuns(ctx context.Context, limit int) ([]*pgrepo.RunRecord, error) {
	if s.runs == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "run history is disabled")
	}
	return s.runs.List(ctx, limit)
}

func (s *runService) TopTransformations(ctx context.Context, runID string, limit int) ([]pgrepo.TransformationCount, error) {
	if s.pairs == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "pair store is disabled")
	}
	return s.pairs.TopTransformations(ctx, runID, limit)
}

func (s *runService) Neighbors(ctx context.Context, runID, key string) ([]neo4jrepo.MoleculeNode, error) {
	if s.network == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "network store is disabled")
	}
	if key == "" {
		return nil, errors.InvalidParam("molecule key is required")
	}
	return s.network.Neighbors(ctx, runID, key)
}

// codeOf keeps the code of an application error and classifies anything
// else as internal.
func codeOf(err error) errors.ErrorCode {
	if code := errors.GetCode(err); code != errors.CodeUnknown {
		return code
	}
	return errors.ErrCodeInternal
}

func inputLabel(req *RunRequest) string {
	if req.Table != nil && req.Input == "" {
		return "inline"
	}
	return req.Input
}

//Personal.AI order the ending
