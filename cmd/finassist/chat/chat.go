package chatcmder

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/finassist/finassist/cmd/finassist/cmdsetup"
	"github.com/finassist/finassist/pkg/chatui"
	"github.com/finassist/finassist/pkg/client"
	"github.com/finassist/finassist/pkg/config"
)

const chatLongDesc string = `Open an interactive chat with the advisor.

The conversation lives only in this terminal session and is sent to
the proxy with every message. Type /upload <file> to ask about a
financial document, /clear to start over and /quit to leave.

Examples:
  finassist chat
  finassist chat --server http://10.0.0.5:8080`

const chatShortDesc string = "Chat with the advisor in the terminal"

type chatCommander struct {
	v       *viper.Viper
	timeout time.Duration

	// start runs the program; tests replace it to inspect the model.
	start func(ctx context.Context, cmd *cobra.Command, model *chatui.Model) error
}

func NewChatCmd(v *viper.Viper) *cobra.Command {
	cmder := &chatCommander{v: v}
	cmder.start = cmder.runProgram
	return newChatCmd(cmder)
}

func newChatCmd(cmder *chatCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringP("server", "s", "http://localhost:8080", "Chat proxy URL")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 0, "Timeout for one chat request (0 waits indefinitely)")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	if err := cmdsetup.BindFlags(c.v, cmd.Flags(), map[string]string{
		config.KeyServerURL: "server",
	}); err != nil {
		return err
	}
	cfg, err := config.Load(c.v)
	if err != nil {
		return err
	}

	return c.start(ctx, cmd, chatui.New(client.New(cfg.ServerURL, client.WithTimeout(c.timeout))))
}

func (c *chatCommander) runProgram(ctx context.Context, cmd *cobra.Command, model *chatui.Model) error {
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	return nil
}
