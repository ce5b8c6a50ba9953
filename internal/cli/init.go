package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/psiclin/psiclin/internal/model"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	ClinicName string
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and register the clinic",
		Long: `Create the local database (applying the schema) and register the clinic
that owns this device's partition.

Example:
  psiclin init --db ./clinic.db --name "Consultório Ana"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ClinicName, "name", "", "clinic name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	svc, cleanup, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer cleanup()

	clinic, err := svc.CreateClinic(cmd.Context(), model.Clinic{Name: opts.ClinicName})
	if err != nil {
		return asExitError(err)
	}

	f := newFormatter(cmd, opts.RootOptions)
	return f.Emit(clinic, func(w io.Writer) {
		fmt.Fprintf(w, "Initialized database %s\n", opts.Database)
		fmt.Fprintf(w, "Clinic %q registered with id %s\n", clinic.Name, clinic.ID)
	})
}

// asExitError maps typed record errors to operation failures (exit 1) and
// everything else to command errors (exit 2).
func asExitError(err error) error {
	if err == nil {
		return nil
	}
	var me *model.Error
	if errors.As(err, &me) {
		return &ExitError{Code: ExitFailure, Message: me.Error()}
	}
	return WrapExitError(ExitCommandError, "command failed", err)
}
