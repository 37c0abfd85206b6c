package main

import (
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"vidnotes/internal/config"
	"vidnotes/internal/fileutil"
	"vidnotes/internal/notes"
	"vidnotes/internal/pipeline"
	"vidnotes/internal/session"
)

type processOutput struct {
	Session   *session.Session `json:"session"`
	Blocks    []notes.Block    `json:"blocks,omitempty"`
	NotesFile string           `json:"notes_file,omitempty"`
	Error     string           `json:"error,omitempty"`
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "process <video>",
		Short: "Convert one video into notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve video path: %w", err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			eng, err := buildEngines(runCtx, cfg, store, logger, 1)
			if err != nil {
				return err
			}
			defer eng.Close()

			result, procErr := eng.runner.Process(runCtx, pipeline.Upload{
				Filename:  filepath.Base(source),
				LocalPath: source,
			})
			if result == nil {
				return procErr
			}

			out := processOutput{Session: result.Session, Blocks: result.Document.Blocks}
			if procErr != nil {
				out.Error = procErr.Error()
			}
			if procErr == nil && strings.TrimSpace(outputPath) != "" {
				target, err := writeNotesFile(outputPath, result.Document)
				if err != nil {
					return err
				}
				out.NotesFile = target
			}

			if jsonOutput {
				if err := writeJSON(cmd, out); err != nil {
					return err
				}
			} else {
				printProcessResult(cmd.OutOrStdout(), out)
			}
			return procErr
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write notes to this file (.txt or .docx)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the session result as JSON")
	return cmd
}

func writeNotesFile(path string, doc notes.Document) (string, error) {
	target, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	if strings.EqualFold(filepath.Ext(target), ".docx") {
		if err := notes.WriteDocx(doc, target); err != nil {
			return "", fmt.Errorf("write notes: %w", err)
		}
		return target, nil
	}
	if err := fileutil.WriteFileAtomic(target, []byte(doc.Text), 0o644); err != nil {
		return "", fmt.Errorf("write notes: %w", err)
	}
	return target, nil
}

func printProcessResult(w io.Writer, out processOutput) {
	sess := out.Session
	fmt.Fprintf(w, "Session %s (%s)\n", sess.ID, sess.Filename)
	for _, stage := range sess.Stages {
		info, _ := pipeline.Describe(stage.Stage)
		line := fmt.Sprintf("  %-16s %s", info.Title+":", strings.ToUpper(string(stage.Status)))
		switch {
		case stage.Status == session.StageFailed && stage.Error != "":
			line += "  " + stage.Error
		case stage.Message != "":
			line += "  " + stage.Message
		}
		fmt.Fprintln(w, line)
	}

	if sess.Transcript != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Transcript")
		fmt.Fprintln(w, sess.Transcript)
	}
	if sess.Notes != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, notes.Banner)
		fmt.Fprint(w, sess.Notes)
	}
	if out.NotesFile != "" {
		fmt.Fprintf(w, "\nNotes written to %s\n", out.NotesFile)
	}
}
