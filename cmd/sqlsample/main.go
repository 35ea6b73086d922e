// Command sqlsample runs the select and non-query statements of a YAML
// profile and logs their outcome.
package main

import (
	"log/slog"
	"os"

	"github.com/DjordjeVuckovic/sqlconnector/internal/connection"
	"github.com/DjordjeVuckovic/sqlconnector/internal/query"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage/factory"
	"github.com/spf13/cobra"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var (
		profilePath string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:           "sqlsample",
		Short:         "Run the statements of a connection profile",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, e, err := load(profilePath)
			if err != nil {
				return err
			}
			// Both statements run even when the select fails.
			selErr := runSelect(cmd.Context(), e, p)
			execErr := runNonQuery(cmd.Context(), e, p)
			if selErr != nil {
				return selErr
			}
			return execErr
		},
	}

	cmd.PersistentFlags().StringVarP(&profilePath, "profile", "p", "cmd/sqlsample/profile.yaml", "Path to the YAML connection profile")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newQueryCommand(&profilePath))
	cmd.AddCommand(newExecCommand(&profilePath))
	return cmd
}

func newQueryCommand(profilePath *string) *cobra.Command {
	var field string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run only the select statement",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, e, err := load(*profilePath)
			if err != nil {
				return err
			}
			if field != "" {
				p.Field = field
			}
			return runSelect(cmd.Context(), e, p)
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "Column to log for each row, overrides the profile")
	return cmd
}

func newExecCommand(profilePath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "exec",
		Short: "Run only the non-query statement",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, e, err := load(*profilePath)
			if err != nil {
				return err
			}
			return runNonQuery(cmd.Context(), e, p)
		},
	}
}

func load(path string) (*Profile, *query.Executor, error) {
	p, err := LoadProfile(path)
	if err != nil {
		slog.Error("Failed to load profile", "error", err)
		return nil, nil, err
	}

	desc, err := p.Descriptor()
	if err != nil {
		slog.Error("Invalid connection settings", "error", err)
		return nil, nil, err
	}

	drv, err := factory.NewDriver(storage.Type(p.Driver))
	if err != nil {
		return nil, nil, err
	}

	f := connection.New(drv, desc)
	slog.Debug("Profile loaded", "driver", drv.Name(), "descriptor", desc.Redacted())
	return p, query.New(f, query.WithExecOptions(p.ExecOptions())), nil
}
