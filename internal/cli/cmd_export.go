// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/patentchat/internal/export"
	"github.com/jeranaias/patentchat/internal/model"
	"github.com/jeranaias/patentchat/internal/ui/styles"
)

// exportFlags holds the export command's flags.
type exportFlags struct {
	format    string
	outputDir string
	stdout    bool
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Save a conversation as Markdown or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts, flags, args[0])
		},
	}
	cmd.Flags().StringVarP(&flags.format, "format", "f", "md", "output format: md or json")
	cmd.Flags().StringVarP(&flags.outputDir, "output", "o", ".", "directory to write into")
	cmd.Flags().BoolVar(&flags.stdout, "stdout", false, "print instead of writing a file")
	return cmd
}

func runExport(cmd *cobra.Command, opts *globalOptions, flags *exportFlags, sessionID string) error {
	exporter, err := export.ForFormat(flags.format, &export.Options{
		OutputDir:         flags.outputDir,
		IncludeTimestamps: true,
	})
	if err != nil {
		return fail(cmd, opts, "export", err)
	}

	a, err := newApp(opts)
	if err != nil {
		return fail(cmd, opts, "export", err)
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.vm.RefreshSessions(ctx); err != nil {
		log.Printf("EXPORT_TITLE_UNAVAILABLE | session=%s error=%v", sessionID, err)
	}
	a.vm.SelectSession(ctx, sessionID)

	state := a.vm.State()
	if state.Status == model.StatusError {
		return fail(cmd, opts, "export", fmt.Errorf("failed to load conversation %s", sessionID))
	}

	summary, ok := state.Sessions.Find(sessionID)
	if !ok {
		summary = model.SessionSummary{SessionID: sessionID}
	}
	transcript := export.NewTranscript(summary, state.Messages, time.Now())

	if flags.stdout {
		data, err := exporter.Export(transcript)
		if err != nil {
			return fail(cmd, opts, "export", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	path, err := export.ExportToFile(transcript, exporter, &export.Options{OutputDir: flags.outputDir})
	if err != nil {
		return fail(cmd, opts, "export", err)
	}
	if opts.json {
		return NewJSONResponse("export", map[string]string{
			"path":   path,
			"format": exporter.MimeType(),
		}).Write(cmd.OutOrStdout())
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Exported to "+path))
	return nil
}
