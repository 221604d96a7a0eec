package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"quiz-session-client/internal/app"
	"quiz-session-client/internal/domain"
	"quiz-session-client/internal/point"
	"quiz-session-client/internal/question"
)

// NewPlayCmd builds the subcommand that joins a lobby as a player.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		name      string
		lobbyCode string
		box       point.Box
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join a lobby and answer questions (commands: choose, set, point, submit, quit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := &console{w: cmd.OutOrStdout()}
			return runPlay(cmd.Context(), cmd, app.NewPlayer(client), out, name, lobbyCode, box)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&lobbyCode, "lobby", "", "lobby code to join")
	cmd.Flags().Float64Var(&box.Width, "image-width", 200, "width of the rendered point-selector image")
	cmd.Flags().Float64Var(&box.Height, "image-height", 100, "height of the rendered point-selector image")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("lobby")
	return cmd
}

func runPlay(ctx context.Context, cmd *cobra.Command, player *app.Player, out *console, name, lobbyCode string, box point.Box) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client := player.Client()
	stop := watch(client, out)
	defer stop()
	defer client.Disconnect()

	if err := player.Join(ctx, name, lobbyCode); err != nil {
		return err
	}

	return repl(ctx, cmd.InOrStdin(), out, func(ctx context.Context, args []string) error {
		switch args[0] {
		case "choose":
			if len(args) != 2 {
				return fmt.Errorf("usage: choose <option>")
			}
			i, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			return player.SelectOption(i)
		case "set":
			if len(args) != 3 {
				return fmt.Errorf("usage: set <slot> <value>")
			}
			slot, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			return player.SetNumber(slot, args[2])
		case "point":
			if len(args) != 3 {
				return fmt.Errorf("usage: point <x> <y>")
			}
			x, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return err
			}
			y, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return err
			}
			if kind, ok := player.Kind(); !ok || kind != question.KindPointSelector {
				return domain.ErrWrongQuestionType
			}
			// The terminal has no layout pass, so the image counts as loaded on first use.
			player.LoadImage(box)
			outcome, err := player.PointerAt(x, y)
			if err != nil {
				return err
			}
			if !outcome.Selected {
				return point.ErrBoxNotReady
			}
			return nil
		case "submit":
			return player.Submit(ctx)
		default:
			return fmt.Errorf("unknown command %q", args[0])
		}
	})
}
