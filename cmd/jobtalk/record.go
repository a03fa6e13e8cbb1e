package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"jobtalk/internal/application"
	"jobtalk/internal/document"
)

func recordCmd() *cobra.Command {
	var (
		out    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a job description and print the proposal",
		Long: `Records from the configured audio source until Enter is pressed, the
speaker goes quiet or the maximum duration is reached. The recording is
transcribed and categorized and the resulting proposal is written to stdout
or --out.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := setupLogger(cfg.Log)
			ctx := cmd.Context()

			recorder := application.NewRecorder(newAudioDevice(cfg.Audio, logger), nil, logger)
			defer recorder.Close()

			session := application.NewSession(uuid.NewString(), newPipeline(cfg, nil, logger), logger)

			rec, err := recorder.Start(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Recording... press Enter to stop.")
			go func() {
				_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				rec.Stop()
			}()

			result, err := session.Record(ctx, rec)
			if err != nil {
				if errors.Is(err, application.ErrRecordingCancelled) {
					return errors.New("recording cancelled")
				}
				return err
			}
			logger.Info("intake complete", "transcript", result.Transcript)

			snap := session.Snapshot()
			doc, err := document.Render(document.Proposal{
				Title:              cfg.Document.Title,
				Fields:             snap.Fields,
				DownPaymentPercent: cfg.Document.DownPaymentPercent,
				Terms:              cfg.Document.Terms,
				Date:               time.Now(),
			})
			if err != nil {
				return err
			}

			return writeDocument(cmd.OutOrStdout(), out, format, doc)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the proposal to this file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "markdown", "output format (markdown, html)")
	return cmd
}

func writeDocument(stdout io.Writer, path, format string, doc document.Document) error {
	var body string
	switch format {
	case "markdown", "md":
		body = doc.Markdown
	case "html":
		body = doc.HTML
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	if path == "" {
		_, err := io.WriteString(stdout, body)
		return err
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("writing proposal: %w", err)
	}
	return nil
}
