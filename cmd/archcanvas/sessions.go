package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"archcanvas/internal/codec"
	"archcanvas/internal/domain"
	"archcanvas/internal/repository"
	"archcanvas/internal/repository/sqlite"
)

var (
	exportOutput string
	exportFormat string
	importFormat string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd.Context(), func(ctx context.Context, repo *sqlite.Repository) error {
			sessions, err := repo.ListSessions(ctx)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved sessions.")
				return nil
			}
			return printSessions(cmd.OutOrStdout(), sessions)
		})
	},
}

var sessionsRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Delete saved sessions and their notifications",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd.Context(), func(ctx context.Context, repo *sqlite.Repository) error {
			for _, id := range args {
				if err := repo.DeleteSession(ctx, id); err != nil {
					if errors.Is(err, repository.ErrNotFound) {
						return fmt.Errorf("session %s not found", id)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Export a saved canvas (default: the latest session)",
	Long: `Writes the confirmed components and links of a saved session. The format
comes from --format, else from the output file name (json, yaml, json.zst,
yaml.zst). Without --output the canvas is written to stdout as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a canvas file as a new saved session",
	Long:  `Reads a canvas file and saves it as a new session; resume it with "shell --resume <id>".`,
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "Output format")
	importCmd.Flags().StringVar(&importFormat, "format", "", "Input format (default: from the file name)")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsRmCmd)
	rootCmd.AddCommand(sessionsCmd, exportCmd, importCmd)
}

func withRepository(ctx context.Context, fn func(context.Context, *sqlite.Repository) error) error {
	repo, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()
	return fn(ctx, repo)
}

func printSessions(w io.Writer, sessions []repository.SessionSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tARCHITECTURE\tCOMPONENTS\tLINKS\tSAVED")
	for _, s := range sessions {
		arch := s.ArchitectureName
		if arch == "" {
			arch = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", s.ID, arch, s.Nodes, s.Edges, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// pickCodec prefers an explicit format over the file name
func pickCodec(format, path string) (codec.Codec, error) {
	switch {
	case format != "":
		return codec.ForFormat(format)
	case path != "" && path != "-":
		return codec.ForPath(path)
	}
	return codec.ForFormat("json")
}

func runExport(cmd *cobra.Command, args []string) error {
	c, err := pickCodec(exportFormat, exportOutput)
	if err != nil {
		return err
	}

	resume := resumeLatest
	if len(args) == 1 {
		resume = args[0]
	}

	var canvas *domain.Canvas
	err = withRepository(cmd.Context(), func(ctx context.Context, repo *sqlite.Repository) error {
		_, canvas, err = resolveSession(ctx, repo, resume)
		return err
	})
	if err != nil {
		return err
	}

	if exportOutput == "" || exportOutput == "-" {
		return c.Export(canvas, cmd.OutOrStdout())
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := c.Export(canvas, bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported session %s (%d components, %d links) to %s\n",
		canvas.SessionID, len(canvas.Nodes), len(canvas.Edges), exportOutput)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	c, err := pickCodec(importFormat, path)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	canvas, err := c.Parse(bufio.NewReader(f))
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	canvas.SessionID = uuid.NewString()

	err = withRepository(cmd.Context(), func(ctx context.Context, repo *sqlite.Repository) error {
		return repo.SaveCanvas(ctx, canvas)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d components and %d links as session %s\n",
		len(canvas.Nodes), len(canvas.Edges), canvas.SessionID)
	return nil
}
