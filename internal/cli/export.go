package cli

import (
	"context"
	"fmt"
	"io"

	"quizrunner/internal/app"
	"quizrunner/internal/report"

	"github.com/spf13/cobra"
)

func newExportCmd(cfg *app.Config) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export quiz results to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), *cfg, out, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "quiz_results.xlsx", "output XLSX path")
	return cmd
}

func runExport(ctx context.Context, cfg app.Config, out string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	bank, conn, _, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	rep, err := report.NewService(conn, bank).Build(ctx)
	if err != nil {
		return err
	}
	if err := report.SaveXLSX(rep, out); err != nil {
		return err
	}
	fmt.Fprintf(w, "Saved report to %s\n", out)
	return nil
}
