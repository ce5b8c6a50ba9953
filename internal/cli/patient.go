package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/psiclin/psiclin/internal/model"
)

// PatientOptions holds flags shared by the patient subcommands.
type PatientOptions struct {
	*RootOptions
	ClinicID  string
	PublicID  string
	FullName  string
	Gender    string
	BirthDate string
	Notes     string
}

// NewPatientCommand creates the patient command group.
func NewPatientCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Manage patients",
	}
	cmd.AddCommand(newPatientAddCommand(rootOpts))
	cmd.AddCommand(newPatientListCommand(rootOpts))
	cmd.AddCommand(newPatientShowCommand(rootOpts))
	cmd.AddCommand(newPatientUpdateCommand(rootOpts))
	return cmd
}

func newPatientAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PatientOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a patient",
		Long: `Register a patient in a clinic.

The public id is the de-identified code shown everywhere; it must be unique
within the clinic and never changes. The full name is optional and is only
ever displayed when the privacy gate discloses it.

Example:
  psiclin patient add --clinic C1 --public-id P-001 --name "Maria Silva"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			p := model.Patient{
				ClinicID:  opts.ClinicID,
				PublicID:  opts.PublicID,
				Gender:    opts.Gender,
				BirthDate: opts.BirthDate,
				Notes:     opts.Notes,
			}
			if opts.FullName != "" {
				p.FullName = &opts.FullName
			}

			created, err := svc.CreatePatient(cmd.Context(), p)
			if err != nil {
				return asExitError(err)
			}

			f := newFormatter(cmd, rootOpts)
			return f.Emit(redactPatient(created, false), func(w io.Writer) {
				fmt.Fprintf(w, "Patient %s registered with id %s\n", created.PublicID, created.ID)
			})
		},
	}

	cmd.Flags().StringVar(&opts.ClinicID, "clinic", "", "clinic id (required)")
	cmd.Flags().StringVar(&opts.PublicID, "public-id", "", "de-identified display code (required)")
	cmd.Flags().StringVar(&opts.FullName, "name", "", "full name (PII, optional)")
	cmd.Flags().StringVar(&opts.Gender, "gender", "", "gender")
	cmd.Flags().StringVar(&opts.BirthDate, "birth-date", "", "birth date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes summary")
	_ = cmd.MarkFlagRequired("clinic")
	_ = cmd.MarkFlagRequired("public-id")

	return cmd
}

func newPatientListCommand(rootOpts *RootOptions) *cobra.Command {
	var clinicID string

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List a clinic's patients, ordered by name",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			gate := openGate(rootOpts)
			gate.CheckToken(cmd.Context())
			disclose := gate.Disclose()

			patients, err := svc.GetPatientsByClinic(cmd.Context(), clinicID)
			if err != nil {
				return asExitError(err)
			}

			redacted := make([]patientView, len(patients))
			for i, p := range patients {
				redacted[i] = redactPatient(p, disclose)
			}

			f := newFormatter(cmd, rootOpts)
			return f.Emit(redacted, func(w io.Writer) {
				for _, v := range redacted {
					fmt.Fprintf(w, "%s  %s\n", v.PublicID, v.DisplayName)
				}
				fmt.Fprintf(w, "%d patient(s)\n", len(redacted))
			})
		},
	}

	cmd.Flags().StringVar(&clinicID, "clinic", "", "clinic id (required)")
	_ = cmd.MarkFlagRequired("clinic")

	return cmd
}

func newPatientShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show <patient-id>",
		Short:         "Show one patient",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			gate := openGate(rootOpts)
			gate.CheckToken(cmd.Context())

			p, err := svc.GetPatientByID(cmd.Context(), args[0])
			if err != nil {
				return asExitError(err)
			}
			v := redactPatient(p, gate.Disclose())

			f := newFormatter(cmd, rootOpts)
			return f.Emit(v, func(w io.Writer) {
				fmt.Fprintf(w, "Public ID:  %s\n", v.PublicID)
				fmt.Fprintf(w, "Name:       %s\n", v.DisplayName)
				fmt.Fprintf(w, "Gender:     %s\n", p.Gender)
				fmt.Fprintf(w, "Birth date: %s\n", p.BirthDate)
				fmt.Fprintf(w, "Notes:      %s\n", p.Notes)
			})
		},
	}
	return cmd
}

func newPatientUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PatientOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "update <patient-id>",
		Short:         "Update a patient's details",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			var u model.PatientUpdate
			if cmd.Flags().Changed("name") {
				u.FullName = &opts.FullName
			}
			if cmd.Flags().Changed("gender") {
				u.Gender = &opts.Gender
			}
			if cmd.Flags().Changed("birth-date") {
				u.BirthDate = &opts.BirthDate
			}
			if cmd.Flags().Changed("notes") {
				u.Notes = &opts.Notes
			}

			updated, err := svc.UpdatePatient(cmd.Context(), args[0], u)
			if err != nil {
				return asExitError(err)
			}

			f := newFormatter(cmd, rootOpts)
			return f.Emit(redactPatient(updated, false), func(w io.Writer) {
				fmt.Fprintf(w, "Patient %s updated\n", updated.PublicID)
			})
		},
	}

	cmd.Flags().StringVar(&opts.FullName, "name", "", "full name (PII)")
	cmd.Flags().StringVar(&opts.Gender, "gender", "", "gender")
	cmd.Flags().StringVar(&opts.BirthDate, "birth-date", "", "birth date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes summary")

	return cmd
}

// patientView is what leaves the process: the display name is the full name
// only under a true disclosure decision, the public id otherwise. The raw
// full name never appears in any output path.
type patientView struct {
	ID          string `json:"id"`
	ClinicID    string `json:"clinic_id"`
	PublicID    string `json:"public_id"`
	DisplayName string `json:"display_name"`
	Gender      string `json:"gender,omitempty"`
	BirthDate   string `json:"birth_date,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

func redactPatient(p model.Patient, disclose bool) patientView {
	v := patientView{
		ID:          p.ID,
		ClinicID:    p.ClinicID,
		PublicID:    p.PublicID,
		DisplayName: p.PublicID,
		Gender:      p.Gender,
		BirthDate:   p.BirthDate,
		Notes:       p.Notes,
	}
	if disclose && p.FullName != nil {
		v.DisplayName = *p.FullName
	}
	return v
}
