package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <session-id>",
		Short: "Show a session's audit trail, newest change first",
		Long: `Show the append-only audit trail for a session: every value each field
ever held, who changed it and when. The trail survives session deletion.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := svc.GetHistoryBySession(cmd.Context(), args[0])
			if err != nil {
				return asExitError(err)
			}

			f := newFormatter(cmd, rootOpts)
			return f.Emit(entries, func(w io.Writer) {
				for _, h := range entries {
					switch h.ChangeType {
					case "updated":
						fmt.Fprintf(w, "%s  %-8s %-20s %s -> %s  (%s)\n",
							h.ChangedAt.Format("2006-01-02 15:04:05"), h.ChangeType,
							deref(h.FieldName), deref(h.OldValue), deref(h.NewValue), h.ChangedBy)
					default:
						fmt.Fprintf(w, "%s  %-8s %s\n",
							h.ChangedAt.Format("2006-01-02 15:04:05"), h.ChangeType, h.ChangedBy)
					}
				}
				fmt.Fprintf(w, "%d change(s)\n", len(entries))
			})
		},
	}
}

func deref(p *string) string {
	if p == nil {
		return "(none)"
	}
	return *p
}
