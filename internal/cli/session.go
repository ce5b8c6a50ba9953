package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/psiclin/psiclin/internal/model"
)

// SessionOptions holds flags shared by the session subcommands.
type SessionOptions struct {
	*RootOptions
	ClinicID      string
	PatientID     string
	Date          string
	Type          string
	Mode          string
	Status        string
	Duration      int
	MainComplaint string
	Hypotheses    string
	Interventions string
	Observations  string
	AISuggestions string
}

// NewSessionCommand creates the session command group.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage clinical sessions",
	}
	cmd.AddCommand(newSessionAddCommand(rootOpts))
	cmd.AddCommand(newSessionListCommand(rootOpts))
	cmd.AddCommand(newSessionUpdateCommand(rootOpts))
	cmd.AddCommand(newSessionDeleteCommand(rootOpts))
	return cmd
}

func addClinicalFlags(cmd *cobra.Command, opts *SessionOptions) {
	cmd.Flags().StringVar(&opts.Date, "date", "", "session date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "session type (anamnese|avaliacao_neuropsicologica|tcc|intervencao_neuropsicologica|retorno|outra)")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "mode (online|presencial|hibrida)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status (agendada|concluida|cancelada)")
	cmd.Flags().IntVar(&opts.Duration, "duration", 0, "scheduled duration in minutes")
	cmd.Flags().StringVar(&opts.MainComplaint, "main-complaint", "", "main complaint")
	cmd.Flags().StringVar(&opts.Hypotheses, "hypotheses", "", "hypotheses")
	cmd.Flags().StringVar(&opts.Interventions, "interventions", "", "interventions")
	cmd.Flags().StringVar(&opts.Observations, "observations", "", "observations")
	cmd.Flags().StringVar(&opts.AISuggestions, "ai-suggestions", "", "ai suggestions")
}

func newSessionAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a session for a patient",
		Long: `Create a session. The patient must belong to the given clinic; the session
starts as agendada unless --status says otherwise. Exactly one "created"
audit row is recorded with it.

Example:
  psiclin session add --clinic C1 --patient <id> --date 2024-01-10 \
      --type anamnese --mode presencial`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			sess := model.Session{
				ClinicID:    opts.ClinicID,
				PatientID:   opts.PatientID,
				SessionDate: opts.Date,
				SessionType: model.SessionType(opts.Type),
				Mode:        model.SessionMode(opts.Mode),
				Status:      model.SessionStatus(opts.Status),
			}
			if opts.Status == "" {
				sess.Status = model.StatusAgendada
			}
			if cmd.Flags().Changed("duration") {
				sess.ScheduledDuration = &opts.Duration
			}
			setIfFlagged(cmd, "main-complaint", &sess.MainComplaint, opts.MainComplaint)
			setIfFlagged(cmd, "hypotheses", &sess.Hypotheses, opts.Hypotheses)
			setIfFlagged(cmd, "interventions", &sess.Interventions, opts.Interventions)
			setIfFlagged(cmd, "observations", &sess.Observations, opts.Observations)
			setIfFlagged(cmd, "ai-suggestions", &sess.AISuggestions, opts.AISuggestions)

			created, err := svc.CreateSession(cmd.Context(), rootOpts.Actor, sess)
			if err != nil {
				return asExitError(err)
			}

			f := newFormatter(cmd, rootOpts)
			return f.Emit(created, func(w io.Writer) {
				fmt.Fprintf(w, "Session %s created (%s, %s, %s)\n",
					created.ID, created.SessionDate, created.SessionType, created.Status)
			})
		},
	}

	cmd.Flags().StringVar(&opts.ClinicID, "clinic", "", "clinic id (required)")
	cmd.Flags().StringVar(&opts.PatientID, "patient", "", "patient id (required)")
	addClinicalFlags(cmd, opts)
	_ = cmd.MarkFlagRequired("clinic")
	_ = cmd.MarkFlagRequired("patient")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("mode")

	return cmd
}

func newSessionListCommand(rootOpts *RootOptions) *cobra.Command {
	var clinicID, patientID string

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List sessions by clinic or by patient, newest first",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (clinicID == "") == (patientID == "") {
				return NewExitError(ExitCommandError, "exactly one of --clinic or --patient is required")
			}

			svc, cleanup, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			var sessions []model.Session
			if clinicID != "" {
				sessions, err = svc.GetSessionsByClinic(cmd.Context(), clinicID)
			} else {
				sessions, err = svc.GetSessionsByPatient(cmd.Context(), patientID)
			}
			if err != nil {
				return asExitError(err)
			}

			f := newFormatter(cmd, rootOpts)
			return f.Emit(sessions, func(w io.Writer) {
				for _, s := range sessions {
					fmt.Fprintf(w, "%s  %s  %-28s %-10s %s\n",
						s.ID, s.SessionDate, s.SessionType, s.Mode, s.Status)
				}
				fmt.Fprintf(w, "%d session(s)\n", len(sessions))
			})
		},
	}

	cmd.Flags().StringVar(&clinicID, "clinic", "", "clinic id")
	cmd.Flags().StringVar(&patientID, "patient", "", "patient id")

	return cmd
}

func newSessionUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <session-id>",
		Short: "Update session fields",
		Long: `Update session fields. Every field whose value actually changes gets one
"updated" audit row with the old and new values; passing a field its
current value records nothing.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			var u model.SessionUpdate
			if cmd.Flags().Changed("date") {
				u.SessionDate = &opts.Date
			}
			if cmd.Flags().Changed("type") {
				t := model.SessionType(opts.Type)
				u.SessionType = &t
			}
			if cmd.Flags().Changed("mode") {
				m := model.SessionMode(opts.Mode)
				u.Mode = &m
			}
			if cmd.Flags().Changed("status") {
				st := model.SessionStatus(opts.Status)
				u.Status = &st
			}
			if cmd.Flags().Changed("duration") {
				u.ScheduledDuration = &opts.Duration
			}
			if cmd.Flags().Changed("main-complaint") {
				u.MainComplaint = &opts.MainComplaint
			}
			if cmd.Flags().Changed("hypotheses") {
				u.Hypotheses = &opts.Hypotheses
			}
			if cmd.Flags().Changed("interventions") {
				u.Interventions = &opts.Interventions
			}
			if cmd.Flags().Changed("observations") {
				u.Observations = &opts.Observations
			}
			if cmd.Flags().Changed("ai-suggestions") {
				u.AISuggestions = &opts.AISuggestions
			}

			updated, err := svc.UpdateSession(cmd.Context(), rootOpts.Actor, args[0], u)
			if err != nil {
				return asExitError(err)
			}

			f := newFormatter(cmd, rootOpts)
			return f.Emit(updated, func(w io.Writer) {
				fmt.Fprintf(w, "Session %s updated\n", updated.ID)
			})
		},
	}

	addClinicalFlags(cmd, opts)
	return cmd
}

func newSessionDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <session-id>",
		Short:         "Delete a session and its attachments",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.DeleteSession(cmd.Context(), rootOpts.Actor, args[0]); err != nil {
				return asExitError(err)
			}

			f := newFormatter(cmd, rootOpts)
			return f.Emit(map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Session %s deleted (attachments removed, history retained)\n", args[0])
			})
		},
	}
}

func setIfFlagged(cmd *cobra.Command, flag string, dst **string, val string) {
	if cmd.Flags().Changed(flag) {
		v := val
		*dst = &v
	}
}
