package askcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/finassist/finassist/cmd/finassist/cmdsetup"
	"github.com/finassist/finassist/pkg/advisor"
	"github.com/finassist/finassist/pkg/chatui"
	"github.com/finassist/finassist/pkg/client"
	"github.com/finassist/finassist/pkg/config"
	"github.com/finassist/finassist/pkg/llm"
)

const askLongDesc string = `Ask the advisor a single question through a running proxy.

The reply is rendered as markdown when stdout is a terminal. Pass
--history to continue a conversation kept in a JSON file: prior turns
are read from it and the updated transcript is written back.

Examples:
  finassist ask "How much should I keep in an emergency fund?"
  finassist ask --history chat.json "And where should I keep it?"
  finassist ask --document statement.pdf
  finassist ask --server http://10.0.0.5:8080 "Is a Roth IRA right for me?"`

const askShortDesc string = "Ask the advisor one question"

const defaultWidth = 80

type askCommander struct {
	document    string
	historyPath string
	plain       bool
	timeout     time.Duration
}

func NewAskCmd(v *viper.Viper) *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: askShortDesc,
		Long:  askLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmdsetup.BindFlags(v, cmd.Flags(), map[string]string{
				config.KeyServerURL: "server",
			}); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context(), cmd, client.New(cfg.ServerURL, client.WithTimeout(cmder.timeout)), strings.Join(args, " "))
		},
	}

	cmd.Flags().StringP("server", "s", "http://localhost:8080", "Chat proxy URL")
	cmd.Flags().StringVarP(&cmder.document, "document", "d", "", "Ask about a financial document (PDF, JPG, PNG)")
	cmd.Flags().StringVar(&cmder.historyPath, "history", "", "JSON file holding the conversation to continue")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print the raw reply without markdown rendering")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 0, "Timeout for the chat request (0 waits indefinitely)")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, chatter chatui.Chatter, question string) error {
	message := strings.TrimSpace(question)
	empty := chatui.EmptyReply
	if c.document != "" {
		doc, err := advisor.NewDocument(c.document)
		if err != nil {
			return err
		}
		message = doc.Prompt
		empty = advisor.DocumentFallback
		fmt.Fprintf(cmd.ErrOrStderr(), "%s (%s)\n", doc.Notice, doc.MediaType)
	}
	if message == "" {
		return errors.New("a question or --document is required")
	}

	history, err := c.loadHistory()
	if err != nil {
		return err
	}

	resp, err := chatter.Chat(ctx, message, history)
	if err != nil {
		return fmt.Errorf("could not reach the advisor: %w", err)
	}

	content := resp.Content
	if content == "" {
		content = empty
	}

	if c.historyPath != "" {
		if err := c.saveHistory(resp.History); err != nil {
			return err
		}
	}

	return c.print(cmd.OutOrStdout(), content)
}

func (c *askCommander) loadHistory() ([]llm.Message, error) {
	if c.historyPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(c.historyPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read history: %w", err)
	}

	var history []llm.Message
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("could not decode history %s: %w", c.historyPath, err)
	}
	return history, nil
}

func (c *askCommander) saveHistory(history []llm.Message) error {
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode history: %w", err)
	}
	if err := os.WriteFile(c.historyPath, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("could not write history: %w", err)
	}
	return nil
}

// print renders content as markdown when out is a terminal.
func (c *askCommander) print(out io.Writer, content string) error {
	f, ok := out.(*os.File)
	if c.plain || !ok || !term.IsTerminal(int(f.Fd())) {
		_, err := fmt.Fprintln(out, content)
		return err
	}

	width := defaultWidth
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		width = w
	}

	rendered, err := chatui.GlamourRenderer(chatui.BackgroundStyle())(width).Render(content)
	if err != nil {
		_, err = fmt.Fprintln(out, content)
		return err
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}
