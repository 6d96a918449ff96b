package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jobrunner/meridian/internal/app"
	"github.com/jobrunner/meridian/internal/config"
	"github.com/jobrunner/meridian/internal/domain"
)

// openEngine builds the application without its servers and loads the
// catalogs, for one-shot commands.
func openEngine(ctx context.Context, cmd *cobra.Command, cfgFile string) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.Metrics.Enabled = false
	cfg.Watch.Enabled = false
	cfg.TLS.Enabled = false
	if !cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = "warn"
	}

	logger := app.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.LoadCatalogs(ctx); err != nil {
		logger.Warn("failed to load catalogs", "error", err)
	}
	return a, nil
}

func closeEngine(a *app.App) {
	if err := a.Shutdown(context.Background()); err != nil {
		slog.Warn("shutdown failed", "error", err)
	}
}

func newTransformCmd(cfgFile *string) *cobra.Command {
	var (
		from, to  int
		precision int
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "transform --from SRID --to SRID X Y [Z]",
		Short: "Transform a single point",
		Long: `Transform a single point between two coordinate systems.

Geographic coordinates are given as longitude and latitude in degrees.
A dash reads one point per line from standard input instead.`,
		Example: `  meridian transform --from 4326 --to 32632 9 50
  meridian transform --from 4230 --to 4326 10 50 --json
  printf '9 50\n10 51\n' | meridian transform --from 4326 --to 32632 -`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var points []domain.Point
			var err error
			if len(args) == 1 && args[0] == "-" {
				points, err = readPoints(cmd.InOrStdin())
			} else {
				var p domain.Point
				p, err = parsePoint(args)
				points = []domain.Point{p}
			}
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openEngine(ctx, cmd, *cfgFile)
			if err != nil {
				return err
			}
			defer closeEngine(a)

			resp, err := a.Transforms.Transform(ctx, domain.TransformRequest{
				SourceSRID: from,
				TargetSRID: to,
				Points:     points,
			})
			if err != nil {
				return err
			}

			if asJSON {
				return writeTransformJSON(cmd.OutOrStdout(), resp)
			}
			for _, p := range resp.Points {
				fmt.Fprintln(cmd.OutOrStdout(), formatPoint(p, precision))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&from, "from", 0, "source SRID")
	cmd.Flags().IntVar(&to, "to", 0, "target SRID")
	cmd.Flags().IntVar(&precision, "precision", 6, "decimal places in text output")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print points and the operation as JSON")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// parsePoint parses two or three ordinates.
func parsePoint(args []string) (domain.Point, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, &domain.ValidationError{
			Field:      "point",
			Value:      strings.Join(args, " "),
			Constraint: "2 or 3 ordinates",
			Message:    "expected X Y [Z]",
		}
	}

	p := make(domain.Point, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, &domain.ValidationError{
				Field:      "point",
				Value:      a,
				Constraint: "number",
				Message:    fmt.Sprintf("ordinate %d is not a number", i),
			}
		}
		p[i] = v
	}
	return p, nil
}

// readPoints parses whitespace or comma separated points, one per line.
// Blank lines and lines starting with # are skipped.
func readPoints(r io.Reader) ([]domain.Point, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var points []domain.Point
	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		p, err := parsePoint(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		points = append(points, p)
	}
	return points, nil
}

func formatPoint(p domain.Point, precision int) string {
	parts := make([]string, len(p))
	half := 0.5 * math.Pow10(-precision)
	for i, v := range p {
		if math.Abs(v) < half {
			v = 0 // no "-0.000"
		}
		parts[i] = strconv.FormatFloat(v, 'f', precision, 64)
	}
	return strings.Join(parts, " ")
}

func writeTransformJSON(w io.Writer, resp *domain.TransformResponse) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"from":   resp.SourceSRID,
		"to":     resp.TargetSRID,
		"points": resp.Points,
		"operation": map[string]any{
			"name":  resp.Operation.Name,
			"type":  resp.Operation.Type,
			"steps": resp.Operation.Steps,
		},
	})
}
