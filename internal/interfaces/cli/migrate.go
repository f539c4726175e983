package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
)

func newMigrateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long:  "Migrate applies the run and pair schema.  Without --path the migrations\nembedded in the binary are used.",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "migrations directory (default: embedded)")

	dsn := func(cmd *cobra.Command) (string, error) {
		cliCtx, err := GetCLIContext(cmd)
		if err != nil {
			return "", err
		}
		return postgres.BuildDSN(cliCtx.Config.Database.Postgres), nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := dsn(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RunMigrations(url, path); err != nil {
				return err
			}
			PrintSuccess(cmd, "migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return errors.InvalidParam("--steps must be positive")
			}
			url, err := dsn(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RollbackMigration(url, path, steps); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := dsn(cmd)
			if err != nil {
				return err
			}
			version, dirty, err := postgres.MigrationStatus(url, path)
			if err != nil {
				return err
			}
			res := migrationStatus{Version: version, Dirty: dirty}
			if path == "" {
				if res.Available, err = postgres.EmbeddedVersions(); err != nil {
					return err
				}
			}
			return PrintResult(cmd, res)
		},
	}

	force := &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.InvalidParam("VERSION must be an integer")
			}
			url, err := dsn(cmd)
			if err != nil {
				return err
			}
			if err := postgres.ForceMigrationVersion(url, path, version); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("schema version forced to %d", version))
			return nil
		},
	}

	cmd.AddCommand(up, down, status, force)
	return cmd
}

type migrationStatus struct {
	Version   uint   `json:"version"`
	Dirty     bool   `json:"dirty"`
	Available []uint `json:"available,omitempty"`
}

func (s migrationStatus) String() string {
	out := fmt.Sprintf("version %d", s.Version)
	if s.Dirty {
		out += " (dirty)"
	}
	if n := len(s.Available); n > 0 {
		out += fmt.Sprintf(", latest embedded %d", s.Available[n-1])
	}
	return out
}

//Personal.AI order the ending
