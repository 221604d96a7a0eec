package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"quiz-session-client/internal/app"
)

// NewHostCmd builds the subcommand that hosts a lobby.
func NewHostCmd(configPath *string) *cobra.Command {
	var (
		lobbyCode string
		joinBase  string
	)
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Open a lobby and drive its questions (commands: next, end, quit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := &console{w: cmd.OutOrStdout()}
			return runHost(cmd.Context(), cmd, app.NewHost(client), out, lobbyCode, joinBase)
		},
	}
	cmd.Flags().StringVar(&lobbyCode, "lobby", "", "lobby code to open")
	cmd.Flags().StringVar(&joinBase, "join-base", "http://localhost", "base URL players join from")
	_ = cmd.MarkFlagRequired("lobby")
	return cmd
}

func runHost(ctx context.Context, cmd *cobra.Command, host *app.Host, out *console, lobbyCode, joinBase string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client := host.Client()
	stop := watch(client, out)
	defer stop()
	defer client.Disconnect()

	if err := host.StartLobby(ctx, lobbyCode); err != nil {
		return err
	}
	out.Printf("join: %s\n", host.JoinURL(joinBase))

	return repl(ctx, cmd.InOrStdin(), out, func(ctx context.Context, args []string) error {
		switch args[0] {
		case "next":
			return host.NextQuestion(ctx)
		case "end":
			return host.EndQuestion(ctx)
		default:
			return fmt.Errorf("unknown command %q", args[0])
		}
	})
}
