package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ingestlab/ingest-harness/internal/backend"
	"github.com/ingestlab/ingest-harness/internal/schema"
)

// newDirectCommand sends ad-hoc input straight into the test input channel,
// bypassing fixtures entirely: a file argument uploads as a document, no
// argument reads text from stdin.
func newDirectCommand(app *App) *cobra.Command {
	var caption string
	cmd := &cobra.Command{
		Use:   "direct [file]",
		Short: "Send a file or stdin text directly into the input channel",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}

			var req backend.SendRequest
			if len(args) == 1 {
				req = backend.SendRequest{
					ChannelID: cfg.TestInputChannelID,
					Kind:      schema.MessageDocument,
					Caption:   caption,
					LocalPath: args[0],
					FileName:  filepath.Base(args[0]),
				}
			} else {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text := strings.TrimSpace(string(raw))
				if text == "" {
					return fmt.Errorf("nothing to send: pass a file or pipe text on stdin")
				}
				req = backend.SendRequest{
					ChannelID: cfg.TestInputChannelID,
					Kind:      schema.MessageText,
					Text:      text,
				}
			}

			if app.DryRun {
				fmt.Fprintf(app.Stdout, "dry-run: would send %s to %s\n", req.Kind, cfg.TestInputChannelID)
				return nil
			}
			client, err := app.Backend()
			if err != nil {
				return err
			}
			sent, err := client.Send(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout, "sent message %d\n", sent.MessageID)
			return nil
		},
	}
	cmd.Flags().StringVar(&caption, "caption", "", "caption for an uploaded file")
	return cmd
}
