package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidnotes/internal/notes"
	"vidnotes/internal/pipeline"
	"vidnotes/internal/session"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Inspect retained sessions",
	}
	cmd.AddCommand(newSessionsListCommand(ctx))
	cmd.AddCommand(newSessionsShowCommand(ctx))
	cmd.AddCommand(newSessionsRemoveCommand(ctx))
	return cmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			items, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				if items == nil {
					items = []*session.Session{}
				}
				return writeJSON(cmd, items)
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No sessions")
				return nil
			}
			fmt.Fprintln(out, renderSessionTable(items, time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}

func newSessionsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one session with its transcript and notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			sess, err := resolveSession(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, sess)
			}
			printSessionDetail(cmd.OutOrStdout(), sess)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}

func newSessionsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove"},
		Short:   "Delete sessions",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			var failed []string
			for _, arg := range args {
				sess, err := resolveSession(cmd.Context(), store, arg)
				if err != nil {
					fmt.Fprintln(out, err)
					failed = append(failed, arg)
					continue
				}
				removed, err := store.Delete(cmd.Context(), sess.ID)
				if err != nil {
					return err
				}
				if removed {
					fmt.Fprintf(out, "Removed session %s (%s)\n", sess.ID, sess.Filename)
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d session(s) not removed", len(failed))
			}
			return nil
		},
	}
}

// resolveSession looks up a session by full ID or unique ID prefix.
func resolveSession(ctx context.Context, store *session.Store, ref string) (*session.Session, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return nil, errors.New("session id required")
	}
	sess, err := store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		return sess, nil
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	var match *session.Session
	for _, candidate := range all {
		if !strings.HasPrefix(candidate.ID, ref) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("session prefix %q is ambiguous", ref)
		}
		match = candidate
	}
	if match == nil {
		return nil, fmt.Errorf("session %s not found", ref)
	}
	return match, nil
}

func renderSessionTable(items []*session.Session, now time.Time) string {
	rows := make([][]string, 0, len(items))
	for _, sess := range items {
		rows = append(rows, []string{
			shortID(sess.ID),
			sess.Filename,
			string(sess.Status),
			stageProgress(sess),
			humanAge(now.Sub(sess.CreatedAt)) + " ago",
			expiresIn(sess, now),
		})
	}
	return renderTable(
		[]string{"ID", "File", "Status", "Stages", "Created", "Expires"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}

func printSessionDetail(w io.Writer, sess *session.Session) {
	fmt.Fprintf(w, "Session:  %s\n", sess.ID)
	fmt.Fprintf(w, "File:     %s\n", sess.Filename)
	fmt.Fprintf(w, "Status:   %s\n", sess.Status)
	fmt.Fprintf(w, "Engine:   %s\n", sess.Engine)
	fmt.Fprintf(w, "Notes:    %s via %s\n", sess.Strategy, sess.Backend)
	fmt.Fprintf(w, "Created:  %s\n", sess.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Expires:  %s\n", sess.ExpiresAt.Local().Format(time.DateTime))
	if sess.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:    [%s] %s\n", sess.ErrorKind, sess.ErrorMessage)
	}

	if len(sess.Stages) > 0 {
		rows := make([][]string, 0, len(sess.Stages))
		for _, stage := range sess.Stages {
			info, _ := pipeline.Describe(stage.Stage)
			detail := stage.Message
			if stage.Error != "" {
				detail = stage.Error
			}
			rows = append(rows, []string{info.Title, string(stage.Status), stage.Duration.Round(time.Millisecond).String(), detail})
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderTable([]string{"Stage", "Status", "Duration", "Detail"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
	}

	if sess.Transcript != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Transcript")
		fmt.Fprintln(w, sess.Transcript)
	}
	if sess.HasNotes() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, notes.Banner)
		fmt.Fprint(w, sess.Notes)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func stageProgress(sess *session.Session) string {
	done := 0
	for _, stage := range sess.Stages {
		if stage.Status == session.StageOK {
			done++
		}
	}
	return fmt.Sprintf("%d/%d", done, len(pipeline.Stages()))
}

func expiresIn(sess *session.Session, now time.Time) string {
	if sess.ExpiresAt.IsZero() {
		return "-"
	}
	if sess.Expired(now) {
		return "expired"
	}
	return "in " + humanAge(sess.ExpiresAt.Sub(now))
}

func humanAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
