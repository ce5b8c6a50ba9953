package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/psiclin/psiclin/internal/backup"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <clinic-id>",
		Short: "Export a clinic's full partition to an archive file",
		Long: `Export everything a clinic owns (patients, sessions, attachments, audit
trail) as a canonical JSON archive. Exporting the same data always yields
byte-identical output.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			archive, err := svc.ExportClinic(cmd.Context(), args[0])
			if err != nil {
				return asExitError(err)
			}
			if err := backup.WriteFile(out, archive); err != nil {
				return WrapExitError(ExitCommandError, "failed to write archive", err)
			}

			f := newFormatter(cmd, rootOpts)
			summary := map[string]any{
				"file":        out,
				"clinic_id":   archive.Clinic.ID,
				"patients":    len(archive.Patients),
				"sessions":    len(archive.Sessions),
				"attachments": len(archive.Attachments),
				"history":     len(archive.History),
			}
			return f.Emit(summary, func(w io.Writer) {
				fmt.Fprintf(w, "Exported clinic %s to %s (%d patients, %d sessions, %d history rows)\n",
					archive.Clinic.ID, out, len(archive.Patients), len(archive.Sessions), len(archive.History))
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output file (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Restore a clinic's partition from an archive file",
		Long: `Validate an archive against the schema and restore it. The clinic's
existing partition is replaced atomically: either the whole archive lands
or nothing changes. Other clinics are untouched.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := backup.ReadFile(file)
			if err != nil {
				return asExitError(err)
			}

			svc, cleanup, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.ImportClinic(cmd.Context(), archive); err != nil {
				return asExitError(err)
			}

			f := newFormatter(cmd, rootOpts)
			summary := map[string]any{
				"clinic_id":   archive.Clinic.ID,
				"patients":    len(archive.Patients),
				"sessions":    len(archive.Sessions),
				"attachments": len(archive.Attachments),
				"history":     len(archive.History),
			}
			return f.Emit(summary, func(w io.Writer) {
				fmt.Fprintf(w, "Imported clinic %s (%d patients, %d sessions, %d history rows)\n",
					archive.Clinic.ID, len(archive.Patients), len(archive.Sessions), len(archive.History))
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "archive file to import (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
