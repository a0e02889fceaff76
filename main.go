// Command csgnorm normalizes the region zones of a CSG geometry and writes
// the result back as FLUKA input.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/chazu/csgnorm/pkg/config"
	"github.com/chazu/csgnorm/pkg/fluka"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	logLevel    string
	logFormat   string
	metricsPath string

	outputPath string
	withMeshes bool
)

// errReported marks a failure whose details were already printed.
var errReported = errors.New("input has errors")

var rootCmd = &cobra.Command{
	Use:           "csgnorm",
	Short:         "Normalize CSG region zones",
	Long:          "csgnorm reads a FLUKA geometry or a Lisp description, rewrites every region as a flat union of zones and prunes terms that cannot contribute.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if metricsPath == "" {
			return nil
		}
		return prometheus.WriteToTextfile(metricsPath, prometheus.DefaultGatherer)
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Normalize a geometry and write FLUKA output",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var validateCmd = &cobra.Command{
	Use:   "validate <input>",
	Short: "Check a geometry without converting it",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var boundsCmd = &cobra.Command{
	Use:   "bounds <input>",
	Short: "Print the bounding box of every body",
	Args:  cobra.ExactArgs(1),
	RunE:  runBounds,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log.format (text, json)")
	rootCmd.PersistentFlags().StringVar(&metricsPath, "metrics", "", "write Prometheus metrics to this file on exit")

	convertCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default stdout)")
	convertCmd.Flags().BoolVar(&withMeshes, "tessellate", false, "also mesh every converted region")

	rootCmd.AddCommand(convertCmd, validateCmd, boundsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "csgnorm:", err)
		}
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, cfg.Validate()
}

// newLogger builds the process logger. Every record carries the run id so
// logs from parallel runs can be told apart.
func newLogger(cfg config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.Log.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("run_id", uuid.New().String()), nil
}

// setup loads the config, builds the logger and the app, and reads input.
func setup(path string) (*App, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return nil, "", err
	}
	app, err := NewApp(cfg, logger)
	if err != nil {
		return nil, "", err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return app, string(src), nil
}

// report prints findings as path:line: message.
func report(w io.Writer, path, kind string, findings []EvalErrorData) {
	for _, f := range findings {
		if f.Line > 0 {
			fmt.Fprintf(w, "%s:%d: %s: %s\n", path, f.Line, kind, f.Message)
		} else {
			fmt.Fprintf(w, "%s: %s: %s\n", path, kind, f.Message)
		}
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	app, src, err := setup(args[0])
	if err != nil {
		return err
	}
	res := app.Evaluate(cmd.Context(), args[0], src, withMeshes)
	report(cmd.ErrOrStderr(), args[0], "warning", res.Warnings)
	if len(res.Errors) > 0 {
		report(cmd.ErrOrStderr(), args[0], "error", res.Errors)
		return errReported
	}

	if outputPath == "" {
		_, err = io.WriteString(cmd.OutOrStdout(), res.Output)
		return err
	}
	return os.WriteFile(outputPath, []byte(res.Output), 0o644)
}

func runValidate(cmd *cobra.Command, args []string) error {
	app, src, err := setup(args[0])
	if err != nil {
		return err
	}
	reg, loadErrs := app.Load(args[0], src)
	if len(loadErrs) > 0 {
		report(cmd.ErrOrStderr(), args[0], "error", loadErrs)
		return errReported
	}
	errs, warnings := app.Check(reg)
	report(cmd.ErrOrStderr(), args[0], "warning", warnings)
	report(cmd.ErrOrStderr(), args[0], "error", errs)
	if len(errs) > 0 {
		return errReported
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bodies, %d regions, ok\n", args[0], reg.BodyCount(), reg.RegionCount())
	return nil
}

func runBounds(cmd *cobra.Command, args []string) error {
	app, src, err := setup(args[0])
	if err != nil {
		return err
	}
	reg, loadErrs := app.Load(args[0], src)
	if len(loadErrs) > 0 {
		report(cmd.ErrOrStderr(), args[0], "error", loadErrs)
		return errReported
	}
	rows, err := app.Bounds(reg)
	if err != nil {
		return err
	}
	return writeBounds(cmd.OutOrStdout(), rows)
}

// writeBounds prints one aligned row per body.
func writeBounds(w io.Writer, rows []BodyBounds) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BODY\tKIND\tXMIN\tXMAX\tYMIN\tYMAX\tZMIN\tZMAX")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s", r.Body.Name, r.Body.Shape.Kind())
		for i := 0; i < 3; i++ {
			fmt.Fprintf(tw, "\t%s\t%s", fluka.FormatFloat(r.Box.Min[i]), fluka.FormatFloat(r.Box.Max[i]))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
