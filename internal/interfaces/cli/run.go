package cli

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	appMMP "github.com/turtacn/KeyIP-MMP/internal/application/mmp"
	domainMMP "github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
)

type runOptions struct {
	input           string
	pairsOut        string
	networkOut      string
	runID           string
	moleculeColumn  string
	idColumn        string
	connectionPoint string
	precedence      string
	ratio           []string
	diff            []string
	duplicates      bool
	useRowKey       bool
	async           bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Find matched molecular pairs in a table",
		Long: "Run reads a CSV or JSON table from a local path or a minio:// URI, emits the\n" +
			"pairs table and the network table, and fans the result out to the enabled\n" +
			"stores.  With --async the run is queued on Kafka for a worker instead.",
		Example: `  mmp run -i compounds.csv --molecule-column Smiles --id-column ID --diff pIC50 --pairs-out pairs.csv
  mmp run -i minio://mmp-tables/in/set1.csv --async`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "input table path or minio:// URI (required)")
	f.StringVar(&opts.pairsOut, "pairs-out", "", "pairs table destination")
	f.StringVar(&opts.networkOut, "network-out", "", "network table destination")
	f.StringVar(&opts.runID, "run-id", "", "run id (UUID, generated when empty)")
	f.StringVar(&opts.moleculeColumn, "molecule-column", "", "column holding the SMILES")
	f.StringVar(&opts.idColumn, "id-column", "", "column holding the molecule id")
	f.StringVar(&opts.connectionPoint, "connection-point", "", "attachment point token")
	f.StringVar(&opts.precedence, "precedence", "", "operand order of ratio and difference columns: R/L or L/R")
	f.StringSliceVar(&opts.ratio, "ratio", nil, "property columns reported as ratios")
	f.StringSliceVar(&opts.diff, "diff", nil, "property columns reported as differences")
	f.BoolVar(&opts.duplicates, "duplicates", false, "emit each pair in both directions")
	f.BoolVar(&opts.useRowKey, "use-row-key", false, "identify molecules by row key")
	f.BoolVar(&opts.async, "async", false, "queue the run on Kafka and return")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runRun(cmd *cobra.Command, opts *runOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	settings, err := opts.settings(cmd, cliCtx.Config.MMP)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	app, err := buildApp(ctx, cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if opts.async {
		return enqueueRun(cmd, app, opts, settings)
	}

	summary, err := app.Service.Run(ctx, &appMMP.RunRequest{
		RunID:         opts.runID,
		Input:         opts.input,
		Settings:      &settings,
		PairsOutput:   opts.pairsOut,
		NetworkOutput: opts.networkOut,
	})
	if err != nil {
		return err
	}
	return PrintResult(cmd, runResult{summary})
}

func enqueueRun(cmd *cobra.Command, app *App, opts *runOptions, settings domainMMP.Settings) error {
	if app.Producer == nil {
		return errors.New(errors.ErrCodeServiceUnavailable, "--async requires kafka.enabled")
	}
	runID := opts.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	msg, err := appMMP.NewRunRequestMessage(appMMP.RunRequestedEvent{
		RunID:         runID,
		Input:         opts.input,
		Settings:      &settings,
		PairsOutput:   opts.pairsOut,
		NetworkOutput: opts.networkOut,
	})
	if err != nil {
		return err
	}
	if err := app.Producer.Publish(cmd.Context(), msg); err != nil {
		return err
	}
	app.Logger.Info("run queued", logging.String("run_id", runID), logging.String("topic", msg.Topic))
	PrintSuccess(cmd, "queued run "+runID)
	return nil
}

// settings overlays the flags the user set on the configured defaults.
func (o *runOptions) settings(cmd *cobra.Command, s domainMMP.Settings) (domainMMP.Settings, error) {
	f := cmd.Flags()
	if f.Changed("molecule-column") {
		s.MoleculeColumn = o.moleculeColumn
	}
	if f.Changed("id-column") {
		s.IDColumn = o.idColumn
	}
	if f.Changed("connection-point") {
		s.ConnectionPoint = o.connectionPoint
	}
	if f.Changed("precedence") {
		p, err := domainMMP.ParsePrecedence(o.precedence)
		if err != nil {
			return s, err
		}
		s.Precedence = p
	}
	if f.Changed("ratio") {
		s.RatioColumns = o.ratio
	}
	if f.Changed("diff") {
		s.DiffColumns = o.diff
	}
	if f.Changed("duplicates") {
		s.GenerateDuplicates = o.duplicates
	}
	if f.Changed("use-row-key") {
		s.UseRowKey = o.useRowKey
	}
	return s, nil
}

// runResult renders a RunSummary for the three output formats.
type runResult struct {
	*appMMP.RunSummary
}

func (r runResult) String() string {
	s := fmt.Sprintf("run %s %s: %d rows (%d skipped), %d pairs, %d connected",
		r.RunID, r.Status, r.Stats.InputRows, r.Stats.SkippedRows, r.Stats.PairsEmitted, r.Stats.ConnectedRows)
	if r.PairsLocation != "" {
		s += "\npairs:   " + r.PairsLocation
	}
	if r.NetworkLocation != "" {
		s += "\nnetwork: " + r.NetworkLocation
	}
	for _, w := range r.Warnings {
		s += "\nwarning: " + w.String()
	}
	return s
}

func (r runResult) TableHeaders() []string {
	return []string{"RUN", "STATUS", "ROWS", "SKIPPED", "CONTEXTS", "PAIRS", "CONNECTED", "WARNINGS"}
}

func (r runResult) TableRows() [][]string {
	return [][]string{{
		r.RunID,
		string(r.Status),
		strconv.Itoa(r.Stats.InputRows),
		strconv.Itoa(r.Stats.SkippedRows),
		strconv.Itoa(r.Stats.Contexts),
		strconv.Itoa(r.Stats.PairsEmitted),
		strconv.Itoa(r.Stats.ConnectedRows),
		strconv.Itoa(len(r.Warnings)),
	}}
}

//Personal.AI order the ending
