package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewClinicCommand creates the clinic command group.
func NewClinicCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clinic",
		Short: "Inspect registered clinics",
	}
	cmd.AddCommand(newClinicListCommand(rootOpts))
	return cmd
}

func newClinicListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List clinics in this database",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			clinics, err := svc.ListClinics(cmd.Context())
			if err != nil {
				return asExitError(err)
			}

			f := newFormatter(cmd, rootOpts)
			return f.Emit(clinics, func(w io.Writer) {
				for _, c := range clinics {
					fmt.Fprintf(w, "%s  %s\n", c.ID, c.Name)
				}
				fmt.Fprintf(w, "%d clinic(s)\n", len(clinics))
			})
		},
	}
}
