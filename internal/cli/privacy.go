package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/psiclin/psiclin/internal/privacy"
)

// NewPrivacyCommand creates the privacy command group.
func NewPrivacyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "privacy",
		Short: "Inspect and control the name-disclosure gate",
		Long: `Patient names are disclosed only when all three signals line up: display
mode is "nome", the consent token is present, and the device is offline.
Everything else shows the de-identified public id.`,
	}
	cmd.AddCommand(newPrivacyStatusCommand(rootOpts))
	cmd.AddCommand(newPrivacyModeCommand(rootOpts))
	cmd.AddCommand(newPrivacyCheckTokenCommand(rootOpts))
	return cmd
}

func newPrivacyStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show the gate's signals and current decision",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			gate := openGate(rootOpts)
			gate.CheckToken(cmd.Context())
			mode, token, connectivity := gate.Signals()
			disclose := gate.Disclose()

			f := newFormatter(cmd, rootOpts)
			status := map[string]any{
				"mode":         string(mode),
				"token":        string(token),
				"connectivity": string(connectivity),
				"disclose":     disclose,
			}
			return f.Emit(status, func(w io.Writer) {
				fmt.Fprintf(w, "Mode:         %s\n", mode)
				fmt.Fprintf(w, "Token:        %s\n", token)
				fmt.Fprintf(w, "Connectivity: %s\n", connectivity)
				fmt.Fprintf(w, "Disclose:     %v\n", disclose)
			})
		},
	}
}

func newPrivacyModeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "mode <id|nome>",
		Short:         "Set the display mode",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := privacy.Mode(args[0])
			if mode != privacy.ModeID && mode != privacy.ModeNome {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid mode %q: must be id or nome", args[0]))
			}

			gate := openGate(rootOpts)
			gate.CheckToken(cmd.Context())
			gate.SetMode(mode)
			disclose := gate.Disclose()

			f := newFormatter(cmd, rootOpts)
			return f.Emit(map[string]any{"mode": string(mode), "disclose": disclose}, func(w io.Writer) {
				fmt.Fprintf(w, "Mode set to %s (disclose: %v)\n", mode, disclose)
			})
		},
	}
}

func newPrivacyCheckTokenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "check-token",
		Short:         "Probe the consent token and report its state",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			gate := openGate(rootOpts)
			token := gate.CheckToken(cmd.Context())

			f := newFormatter(cmd, rootOpts)
			return f.Emit(map[string]any{"token": string(token)}, func(w io.Writer) {
				fmt.Fprintf(w, "Token: %s\n", token)
			})
		},
	}
}
