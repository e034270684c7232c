package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	rferrors "github.com/registryflow/registryflow/pkg/errors"
	"github.com/registryflow/registryflow/pkg/normalize"
	"github.com/registryflow/registryflow/pkg/parser"
	"github.com/registryflow/registryflow/pkg/validation"
)

const tracerName = "github.com/registryflow/registryflow/pkg/pipeline"

// progressEvery is how many rows pass between progress callbacks.
const progressEvery = 5000

// Config configures a Driver.
type Config struct {
	// InputPath is the registry export to convert.
	InputPath string

	// OutputDir is checked for writability before any sink opens.
	OutputDir string

	// Parser configures line splitting.
	Parser parser.Config

	// Parallel runs the selected passes concurrently.
	Parallel bool

	// ErrorLogPath, when set, receives the first pass's row errors as JSON lines.
	ErrorLogPath string

	// Progress, when set, is called periodically during each pass.
	Progress func(Progress)
}

// Progress reports how far a pass has read.
type Progress struct {
	Strategy  Strategy
	Rows      int
	BytesRead int64
	Done      bool
}

// PassResult is the outcome of one pass.
type PassResult struct {
	Strategy  Strategy
	RunID     string
	Report    Report
	Errors    []ErrorRecord
	Elapsed   time.Duration
	Artifacts []string
	ErrorLog  string
	Err       error
}

// Summary collects every pass of a run.
type Summary struct {
	Passes    []PassResult
	InputSize int64
	Elapsed   time.Duration
}

// Err combines the errors of failed passes, or returns nil.
func (s *Summary) Err() error {
	var m rferrors.MultiError
	for _, p := range s.Passes {
		m.Add(p.Err)
	}
	return m.Combined()
}

// Failed returns the passes that ended with an error.
func (s *Summary) Failed() []PassResult {
	var out []PassResult
	for _, p := range s.Passes {
		if p.Err != nil {
			out = append(out, p)
		}
	}
	return out
}

// Driver runs conversion passes over one input file.
type Driver struct {
	cfg     Config
	factory SinkFactory
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewDriver creates a Driver. A nil logger disables logging.
func NewDriver(cfg Config, factory SinkFactory, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Parser.Delimiter == 0 {
		cfg.Parser = parser.DefaultConfig()
	}
	return &Driver{
		cfg:     cfg,
		factory: factory,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

// Preflight validates the input file, its header and the output directory.
// Every error it returns is a fatal startup error carrying an input or
// permission code.
func (d *Driver) Preflight() (int64, error) {
	size, err := validation.ValidateInputFile(d.cfg.InputPath)
	if err != nil {
		return 0, err
	}

	src, err := d.openSource()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	if _, err := d.newNormalizer(src); err != nil {
		return 0, err
	}

	if d.cfg.OutputDir != "" {
		if err := validation.ValidateOutputDir(d.cfg.OutputDir); err != nil {
			return 0, err
		}
	}
	return size, nil
}

// Run performs one pass per strategy that s expands to.
// The returned error is non-nil only for startup failures; pass failures
// are reported in the Summary.
func (d *Driver) Run(ctx context.Context, s Strategy) (*Summary, error) {
	start := time.Now()

	size, err := d.Preflight()
	if err != nil {
		return nil, err
	}

	strategies := s.Expand()
	summary := &Summary{
		Passes:    make([]PassResult, len(strategies)),
		InputSize: size,
	}

	if d.cfg.Parallel && len(strategies) > 1 {
		// Plain group: one failing pass must not cancel the others.
		var g errgroup.Group
		for i, st := range strategies {
			i, st := i, st
			g.Go(func() error {
				summary.Passes[i] = d.runPass(ctx, st, i == 0)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, st := range strategies {
			summary.Passes[i] = d.runPass(ctx, st, i == 0)
		}
	}

	summary.Elapsed = time.Since(start)
	return summary, nil
}

func (d *Driver) runPass(ctx context.Context, st Strategy, writeErrorLog bool) PassResult {
	result := PassResult{
		Strategy: st,
		RunID:    uuid.NewString(),
	}
	start := time.Now()

	ctx, span := d.tracer.Start(ctx, "pipeline.pass", trace.WithAttributes(
		attribute.String("strategy", string(st)),
		attribute.String("run_id", result.RunID),
		attribute.String("input", d.cfg.InputPath),
	))
	defer span.End()

	log := d.logger.With(zap.String("strategy", string(st)), zap.String("run_id", result.RunID))
	log.Info("pass started", zap.String("input", d.cfg.InputPath))

	stats := NewStats()
	if ctx.Err() != nil {
		result.Err = rferrors.Canceled(string(st))
	} else {
		result.Err = d.pass(ctx, st, &result, stats, writeErrorLog, log)
	}

	result.Report = stats.Report()
	result.Errors = stats.Errors()
	result.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.Int("rows.total", result.Report.Total),
		attribute.Int("rows.active", result.Report.Active),
		attribute.Int("rows.errors", result.Report.Errors),
	)

	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
		log.Error("pass failed", zap.Error(result.Err), zap.Duration("elapsed", result.Elapsed))
	} else {
		log.Info("pass finished",
			zap.Int("total", result.Report.Total),
			zap.Int("active", result.Report.Active),
			zap.Int("errors", result.Report.Errors),
			zap.Duration("elapsed", result.Elapsed),
		)
	}
	return result
}

func (d *Driver) pass(ctx context.Context, st Strategy, result *PassResult, stats *Stats, writeErrorLog bool, log *zap.Logger) (err error) {
	src, err := d.openSource()
	if err != nil {
		return err
	}
	defer src.Close()

	norm, err := d.newNormalizer(src)
	if err != nil {
		return err
	}

	sink, err := d.factory.NewSink(st, result.RunID)
	if err != nil {
		return rferrors.Wrapf(err, rferrors.CodeConfig, "create %s sink", st)
	}
	if err := sink.Open(ctx); err != nil {
		return sinkError(err, sink.Name(), "open")
	}
	log.Debug("sink opened", zap.String("sink", sink.Name()))

	defer func() {
		// Close must run even after cancellation so pending batches land.
		closeErr := sink.Close(context.WithoutCancel(ctx))
		result.Artifacts = sink.Artifacts()
		if closeErr != nil && err == nil {
			err = sinkError(closeErr, sink.Name(), "close")
		}
		log.Debug("sink closed", zap.String("sink", sink.Name()), zap.Strings("artifacts", result.Artifacts))
	}()

	var dlq *DLQWriter
	if writeErrorLog && d.cfg.ErrorLogPath != "" {
		dlq, err = NewDLQWriter(d.cfg.ErrorLogPath, d.cfg.InputPath, result.RunID)
		if err != nil {
			log.Warn("error log disabled", zap.Error(err))
			dlq, err = nil, nil
		} else {
			result.ErrorLog = dlq.Path()
			defer func() {
				if cerr := dlq.Close(); cerr != nil {
					log.Warn("error log close failed", zap.Error(cerr))
				}
			}()
		}
	}

	streaming := st.StreamsRecords()
	row := 0
	for {
		if streaming && ctx.Err() != nil {
			return rferrors.Canceled(string(st))
		}

		line, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rferrors.Wrapf(err, rferrors.CodeInvalidFormat, "read %s", d.cfg.InputPath)
		}

		row++
		stats.RecordSeen()

		c, ok, nerr := norm.Normalize(line.Fields)
		if nerr != nil {
			rec := ErrorRecord{
				Row:     row,
				Line:    line.Number,
				Type:    ClassifyRowError(nerr),
				Message: nerr.Error(),
				Raw:     line.Raw,
			}
			stats.AddError(rec)
			log.Debug("row rejected", zap.Int("row", row), zap.Int("line", line.Number), zap.Error(nerr))
			if dlq != nil {
				if werr := dlq.WriteError(rec); werr != nil {
					log.Warn("error log write failed", zap.Error(werr))
				}
			}
			continue
		}
		if !ok {
			continue
		}

		if c.IsActive() {
			stats.RecordActive(&c)
		}

		if err := sink.Write(ctx, &c); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return rferrors.Wrap(err, rferrors.CodeCanceled, string(st)+" canceled")
			}
			return sinkError(err, sink.Name(), "write")
		}

		if d.cfg.Progress != nil && row%progressEvery == 0 {
			d.cfg.Progress(Progress{Strategy: st, Rows: row, BytesRead: src.BytesRead()})
		}
	}

	if d.cfg.Progress != nil {
		d.cfg.Progress(Progress{Strategy: st, Rows: row, BytesRead: src.BytesRead(), Done: true})
	}
	return nil
}

func (d *Driver) openSource() (parser.Source, error) {
	src, err := parser.Open(d.cfg.InputPath, d.cfg.Parser)
	if err == nil {
		return src, nil
	}

	switch {
	case errors.Is(err, parser.ErrEmptyInput):
		return nil, rferrors.Wrap(err, rferrors.CodeEmptyInput, "input has no header")
	case errors.Is(err, parser.ErrNoSheets):
		return nil, rferrors.Wrap(err, rferrors.CodeInvalidFormat, "workbook has no sheets")
	case errors.Is(err, fs.ErrNotExist):
		return nil, rferrors.FileNotFound(d.cfg.InputPath)
	case errors.Is(err, fs.ErrPermission):
		return nil, rferrors.Wrap(err, rferrors.CodeFilePermission, "permission denied")
	default:
		return nil, rferrors.Wrap(err, rferrors.CodeInvalidFormat, "cannot read input")
	}
}

func (d *Driver) newNormalizer(src parser.Source) (*normalize.Normalizer, error) {
	norm, err := normalize.FromHeader(src.Header())
	if errors.Is(err, normalize.ErrMissingLicenseColumn) {
		return nil, rferrors.MissingColumn("license number", src.Header())
	}
	return norm, err
}

// sinkError keeps a coded error from a sink and codes anything else as a
// write failure.
func sinkError(err error, sink, op string) error {
	if rferrors.GetCode(err) != rferrors.CodeUnknown {
		return fmt.Errorf("%s %s: %w", sink, op, err)
	}
	return rferrors.Wrapf(err, rferrors.CodeWriteFailed, "%s %s", sink, op)
}
