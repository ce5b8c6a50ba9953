package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/psiclin/psiclin/internal/model"
)

// NewAttachmentCommand creates the attachment command group.
func NewAttachmentCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attachment",
		Short: "Manage session attachments",
	}
	cmd.AddCommand(newAttachmentAddCommand(rootOpts))
	cmd.AddCommand(newAttachmentListCommand(rootOpts))
	cmd.AddCommand(newAttachmentDeleteCommand(rootOpts))
	return cmd
}

func newAttachmentAddCommand(rootOpts *RootOptions) *cobra.Command {
	var sessionID, file string

	cmd := &cobra.Command{
		Use:           "add",
		Short:         "Attach a file to a session",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := os.Stat(file)
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot read attachment file", err)
			}

			svc, cleanup, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			a := model.SessionAttachment{
				SessionID:  sessionID,
				FileName:   filepath.Base(file),
				FileSize:   info.Size(),
				PayloadRef: file,
			}
			created, err := svc.AddAttachment(cmd.Context(), a)
			if err != nil {
				return asExitError(err)
			}

			f := newFormatter(cmd, rootOpts)
			return f.Emit(created, func(w io.Writer) {
				fmt.Fprintf(w, "Attached %s (%d bytes) as %s\n", created.FileName, created.FileSize, created.ID)
			})
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session id (required)")
	cmd.Flags().StringVar(&file, "file", "", "file to attach (required)")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newAttachmentListCommand(rootOpts *RootOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List a session's attachments, newest upload first",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			attachments, err := svc.GetAttachmentsBySession(cmd.Context(), sessionID)
			if err != nil {
				return asExitError(err)
			}

			f := newFormatter(cmd, rootOpts)
			return f.Emit(attachments, func(w io.Writer) {
				for _, a := range attachments {
					fmt.Fprintf(w, "%s  %s  %d bytes  %s\n",
						a.ID, a.UploadedAt.Format("2006-01-02 15:04:05"), a.FileSize, a.FileName)
				}
				fmt.Fprintf(w, "%d attachment(s)\n", len(attachments))
			})
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session id (required)")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func newAttachmentDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <attachment-id>",
		Short:         "Delete one attachment",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.DeleteAttachment(cmd.Context(), args[0]); err != nil {
				return asExitError(err)
			}

			f := newFormatter(cmd, rootOpts)
			return f.Emit(map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Attachment %s deleted\n", args[0])
			})
		},
	}
}
