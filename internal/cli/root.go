// Package cli implements the psiclin command line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/psiclin/psiclin/internal/privacy"
	"github.com/psiclin/psiclin/internal/records"
	"github.com/psiclin/psiclin/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
	Actor    string // acting user id recorded on audit rows; empty = system
	Offline  bool   // declared device connectivity (defaults to online)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the psiclin CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "psiclin",
		Short: "psiclin - local-first clinical record keeper",
		Long: `psiclin keeps clinical records (patients, sessions, attachments and their
audit trail) in a local SQLite database, one partition per clinic, fully
offline. Patient names are only ever shown when the privacy gate discloses
them.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			logLevel := slog.LevelInfo
			if opts.Verbose {
				logLevel = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
			slog.SetDefault(slog.New(handler))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "psiclin.db", "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.Actor, "actor", "", "acting user id for audit attribution")
	cmd.PersistentFlags().BoolVar(&opts.Offline, "offline", false, "declare the device offline (required for name disclosure)")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewClinicCommand(opts))
	cmd.AddCommand(NewPatientCommand(opts))
	cmd.AddCommand(NewSessionCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewAttachmentCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewPrivacyCommand(opts))

	return cmd
}

// Execute runs the root command, mapping errors to exit codes.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openService opens the store and builds the records service. The returned
// cleanup closes the store.
func openService(opts *RootOptions) (*records.Service, func(), error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	svc, err := records.New(st)
	if err != nil {
		st.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to initialize records service", err)
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}
	return svc, cleanup, nil
}

// openGate builds the privacy gate for this invocation. Mode persists in a
// YAML file next to the database; the simulated token is a marker file next
// to it; connectivity comes from the --offline flag.
func openGate(opts *RootOptions) *privacy.Gate {
	gate := privacy.NewGate(
		privacy.FileProbe{Path: tokenPath(opts)},
		privacy.FileSettings{Path: settingsPath(opts)},
	)
	if opts.Offline {
		gate.SetConnectivity(privacy.Offline)
	}
	return gate
}

func settingsPath(opts *RootOptions) string {
	return filepath.Join(filepath.Dir(opts.Database), "privacy.yaml")
}

func tokenPath(opts *RootOptions) string {
	return filepath.Join(filepath.Dir(opts.Database), "token.present")
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
