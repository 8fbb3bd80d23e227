package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/phobologic/sdguide/internal/tester"
	"github.com/phobologic/sdguide/internal/testrunner"
)

func testerCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tester",
		Short: "Run application test suites",
	}
	cmd.AddCommand(testerServeCmd(g), testerRunCmd(g))
	return cmd
}

// newRunner builds a command runner from the suites in the config file.
func (e *env) newRunner(metrics *testrunner.Metrics) (*testrunner.CommandRunner, error) {
	suites, err := e.cfg.SuiteCommands(e.base)
	if err != nil {
		return nil, err
	}
	return testrunner.NewCommandRunner(suites, e.logger, metrics), nil
}

func testerServeCmd(g *globalFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tester API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			e, err := g.setup(cmd, wd)
			if err != nil {
				return err
			}
			if listen == "" {
				listen = e.cfg.Tester.Listen
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			cr, err := e.newRunner(testrunner.NewMetrics(reg))
			if err != nil {
				return err
			}
			defer func() {
				if err := cr.Close(); err != nil {
					e.logger.Warn("Failed to stop test run", "error", err)
				}
			}()

			runner := testrunner.Select(cr)
			if !testrunner.IsSupported(runner) {
				e.logger.Warn("No runnable test suites configured, tester is disabled")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return tester.Serve(ctx, listen, tester.NewHandler(runner, reg, e.logger), e.logger)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	return cmd
}

func testerRunCmd(g *globalFlags) *cobra.Command {
	var (
		testConfig string
		poll       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run SUITE",
		Short: "Run one test suite and print its log and report",
		Long: `Run one test suite and print its log and report.

SUITE is one of system, staging-setup, staging or production (or the
SYSTEM_TEST style names). The command fails unless the suite succeeds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, err := testrunner.ParseSuite(args[0])
			if err != nil {
				return err
			}
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			e, err := g.setup(cmd, wd)
			if err != nil {
				return err
			}

			var cfg []byte
			switch testConfig {
			case "":
			case "-":
				cfg, err = io.ReadAll(cmd.InOrStdin())
			default:
				cfg, err = os.ReadFile(testConfig)
			}
			if err != nil {
				return fmt.Errorf("reading test config: %w", err)
			}

			cr, err := e.newRunner(nil)
			if err != nil {
				return err
			}
			defer func() { _ = cr.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			status, err := runSuite(ctx, testrunner.Select(cr), suite, cfg, poll, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if rep := cr.Report(); rep != nil {
				renderReport(cmd.OutOrStdout(), rep)
			}
			if status != testrunner.Success {
				return fmt.Errorf("%s finished with status %s", suite, status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&testConfig, "test-config", "t", "", `file passed to the suite as its config ("-" for stdin)`)
	cmd.Flags().DurationVar(&poll, "poll", 200*time.Millisecond, "log polling interval")
	return cmd
}

// runSuite starts suite on r and streams its log to w until it finishes.
func runSuite(ctx context.Context, r testrunner.TestRunner, suite testrunner.Suite, cfg []byte, poll time.Duration, w io.Writer) (testrunner.Status, error) {
	if err := r.Test(ctx, suite, cfg); err != nil {
		return testrunner.NotStarted, err
	}

	last := int64(-1)
	flush := func() {
		for _, rec := range r.Log(last) {
			_, _ = fmt.Fprintf(w, "%s %-5s %s\n", rec.At.Format(time.TimeOnly), rec.Level, rec.Message)
			last = rec.ID
		}
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		flush()
		// Read the status before the final flush so no record is missed.
		if s := r.Status(); s.Terminal() {
			flush()
			return s, nil
		}
		select {
		case <-ctx.Done():
			flush()
			return r.Status(), ctx.Err()
		case <-ticker.C:
		}
	}
}

func renderReport(w io.Writer, rep *testrunner.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("%s %s", rep.Suite, rep.Status)
	t.AppendHeader(table.Row{"RUN", "PASSED", "FAILED", "SKIPPED", "TOTAL", "DURATION"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "PASSED", Align: text.AlignRight},
		{Name: "FAILED", Align: text.AlignRight},
		{Name: "SKIPPED", Align: text.AlignRight},
		{Name: "TOTAL", Align: text.AlignRight},
		{Name: "DURATION", Align: text.AlignRight},
	})

	var took time.Duration
	if !rep.End.IsZero() {
		took = rep.End.Sub(rep.Start).Round(time.Millisecond)
	}
	t.AppendRow(table.Row{
		rep.RunID,
		strconv.Itoa(rep.Passed),
		strconv.Itoa(rep.Failed),
		strconv.Itoa(rep.Skipped),
		strconv.Itoa(rep.Total()),
		took.String(),
	})
	t.Render()

	if len(rep.Failures) == 0 {
		return
	}
	ft := table.NewWriter()
	ft.SetOutputMirror(w)
	ft.SetStyle(table.StyleLight)
	ft.SetTitle("Failures")
	ft.AppendHeader(table.Row{"PACKAGE", "TEST"})
	for _, f := range rep.Failures {
		ft.AppendRow(table.Row{f.Package, f.Test})
	}
	ft.Render()
}
