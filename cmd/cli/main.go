package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"intakegate/adapters/render"
	"intakegate/adapters/tabular"
	"intakegate/app"
	"intakegate/domain/core"
	"intakegate/domain/intake"
	"intakegate/domain/intake/readiness"
	"intakegate/internal/config"
	"intakegate/internal/container"
	"intakegate/ports"
)

// exitHalted is the process status of a run that completed with a halt verdict
const exitHalted = 2

var errHalted = stderrors.New("intake run halted")

func main() {
	_ = godotenv.Load()

	var configFile string
	rootCmd := &cobra.Command{
		Use:           "intakegate",
		Short:         "Validate, join and certify incident and consequence exports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, toml or json)")

	open := func(ctx context.Context) (*container.Container, error) {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		return container.New(ctx, cfg, nil)
	}

	rootCmd.AddCommand(
		newProposeCmd(open),
		newRunCmd(open),
		newShowCmd(open),
		newListCmd(open),
		newRenderCmd(open),
	)

	if err := rootCmd.Execute(); err != nil {
		if stderrors.Is(err, errHalted) {
			os.Exit(exitHalted)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type opener func(ctx context.Context) (*container.Container, error)

func inputs(args []string) app.Inputs {
	return app.Inputs{
		Incident:    ports.FileSource{Path: args[0]},
		Consequence: ports.FileSource{Path: args[1]},
	}
}

func newProposeCmd(open opener) *cobra.Command {
	var write, confirmedBy string

	cmd := &cobra.Command{
		Use:   "propose [incident-file] [consequence-file]",
		Short: "Propose header mappings for both files",
		Long: `Load both files and list candidate headers for every canonical field.

Nothing is applied. With --write the best candidates are saved as an editable
confirmation file that 'run' accepts once reviewed.

Example: intakegate propose incidents.csv consequences.xlsx --write confirmations.yaml --by "J. Ortiz"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			set, err := c.Service.Propose(cmd.Context(), inputs(args))
			if err != nil {
				if halt, ok := intake.AsHalt(err); ok {
					printFailure(cmd.OutOrStdout(), &halt.Failure)
					return errHalted
				}
				return err
			}
			printProposals(cmd.OutOrStdout(), set)

			if write != "" {
				if err := writeConfirmations(write, newConfirmationFile(set, confirmedBy)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nwrote %d confirmations to %s; review before running\n", len(set.Draft), write)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&write, "write", "", "Write a draft confirmation file")
	cmd.Flags().StringVar(&confirmedBy, "by", "", "Operator name recorded on the draft confirmations")
	return cmd
}

func newRunCmd(open opener) *cobra.Command {
	var confirmations, out, recordsPath, markdown string

	cmd := &cobra.Command{
		Use:   "run [incident-file] [consequence-file]",
		Short: "Run the full intake pipeline and certify or halt",
		Long: `Run load, alias, join, integrity and minutes stages and emit the readiness report.

Exit status is 0 on proceed, 2 on halt and 1 on any other error.

Example: intakegate run incidents.csv consequences.csv --confirmations confirmations.yaml --out report.json --records joined.xlsx`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var confirmed []intake.Confirmation
			if confirmations != "" {
				var err error
				if confirmed, err = readConfirmations(confirmations); err != nil {
					return err
				}
			}

			c, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Service.Run(cmd.Context(), inputs(args), confirmed)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "run %s\n%s\n", res.ID, readiness.Summary(res.Report))
			if res.Persisted {
				fmt.Fprintln(w, "stored in run store")
			}
			for _, r := range res.Report.AliasRejections {
				fmt.Fprintf(w, "rejected confirmation %s.%s -> %q: %s\n", r.Confirmation.File, r.Confirmation.Field, r.Confirmation.Header, r.Reason)
			}
			if res.Report.Failure != nil {
				printFailure(w, res.Report.Failure)
			}

			if out != "" {
				if err := writeJSON(out, res); err != nil {
					return err
				}
			}
			if markdown != "" {
				if err := os.WriteFile(markdown, render.Markdown(res.Stored()), 0o644); err != nil {
					return fmt.Errorf("write markdown report: %w", err)
				}
			}
			if recordsPath != "" && !res.Report.Halted() {
				if err := tabular.WriteRecords(recordsPath, res.Records); err != nil {
					return fmt.Errorf("write records: %w", err)
				}
				fmt.Fprintf(w, "wrote %d joined records to %s\n", len(res.Records), recordsPath)
			}

			if res.Report.Halted() {
				return errHalted
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&confirmations, "confirmations", "", "Confirmation file from 'propose --write' (yaml or json)")
	cmd.Flags().StringVar(&out, "out", "", "Write the run result (report and records) as JSON")
	cmd.Flags().StringVar(&recordsPath, "records", "", "Export joined records to .csv, .tsv or .xlsx (proceed only)")
	cmd.Flags().StringVar(&markdown, "markdown", "", "Write the readiness report as markdown")
	return cmd
}

func newShowCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "show [run-id]",
		Short: "Print a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun(cmd, open, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		},
	}
}

func newListCmd(open opener) *cobra.Command {
	var verdict string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ports.RunFilter{Verdict: intake.Verdict(verdict), Limit: limit, Offset: offset}
			if verdict != "" && filter.Verdict != intake.VerdictProceed && filter.Verdict != intake.VerdictHalt {
				return fmt.Errorf("--verdict must be proceed or halt")
			}
			c, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			runs, err := c.Service.ListRuns(cmd.Context(), filter)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tCREATED\tVERDICT\tFAILURE\tJOIN RATE\tFINGERPRINT")
			for _, r := range runs {
				rate := "n/a"
				if r.JoinSuccessRate != nil {
					rate = fmt.Sprintf("%.2f%%", *r.JoinSuccessRate*100)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05Z"), r.Verdict, r.FailureReason, rate, r.Fingerprint.Short())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&verdict, "verdict", "", "Only runs with this verdict (proceed|halt)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Runs to skip")
	return cmd
}

func newRenderCmd(open opener) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "render [run-id]",
		Short: "Render a stored readiness report as markdown or HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var renderFn func(*ports.StoredRun) []byte
			switch strings.ToLower(format) {
			case "md", "markdown":
				renderFn = render.Markdown
			case "html":
				renderFn = render.HTML
			default:
				return fmt.Errorf("--format must be md or html, got %q", format)
			}
			run, err := loadRun(cmd, open, args[0])
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(renderFn(run))
				return err
			}
			return os.WriteFile(out, renderFn(run), 0o644)
		},
	}
	cmd.Flags().StringVar(&format, "format", "md", "Output format: md|html")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func loadRun(cmd *cobra.Command, open opener, raw string) (*ports.StoredRun, error) {
	id, err := core.ParseRunID(raw)
	if err != nil {
		return nil, err
	}
	c, err := open(cmd.Context())
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Service.GetRun(cmd.Context(), id)
}

func printProposals(w io.Writer, set *app.ProposalSet) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, fp := range set.Files {
		fmt.Fprintf(tw, "\n%s: %s (%s, %s, %d rows)\n", fp.File.Role, fp.File.Name, fp.File.Format, fp.File.Encoding, fp.File.RowCount)
		fmt.Fprintln(tw, "FIELD\tREQUIRED\tHEADER\tMETHOD\tSCORE")
		for _, p := range fp.Proposals {
			if len(p.Candidates) == 0 {
				fmt.Fprintf(tw, "%s\t%t\t-\t-\t-\n", p.Field, p.Required)
				continue
			}
			for i, cand := range p.Candidates {
				field := string(p.Field)
				if i > 0 {
					field = ""
				}
				fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%.2f\n", field, p.Required, cand.Header, cand.Method, cand.Score)
			}
		}
	}
	_ = tw.Flush()
}

func printFailure(w io.Writer, f *intake.FailureRecord) {
	fmt.Fprintf(w, "HALT %s at %s stage (%s)\n%s\n", f.Reason, f.Stage, f.AffectedFile, f.Message)
	for i, step := range f.RemediationSteps {
		fmt.Fprintf(w, "  %d. %s\n", i+1, step)
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
