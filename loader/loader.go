package loader

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spektr-org/kpideck/engine"
	"github.com/spektr-org/kpideck/helpers"
	"github.com/spektr-org/kpideck/internal/errors"
	"github.com/spektr-org/kpideck/schema"
	"github.com/spektr-org/kpideck/source"
)

// ============================================================================
// LOADER — Concurrent fetch + parse of every extract a config names
// ============================================================================
// One goroutine per data source. Each writes only its own slot; the
// Datasets are assembled after every fetch has settled.
//
//   absent (ErrNotFound)  → Missing dataset + warning, load continues
//   any other failure     → DATA_SOURCE_FETCH_FAILED, peers canceled
// ============================================================================

// Result is the outcome of loading one client's extracts.
type Result struct {
	Current  engine.Datasets
	Prior    *engine.Datasets // nil when the config declares no comparisonSources
	Warnings []string
}

// Loader fetches and parses extracts.
type Loader struct {
	fetcher   source.Fetcher
	timeout   time.Duration
	logger    *zap.Logger
	parseOpts []helpers.Option
}

// Option configures a Loader.
type Option func(*Loader)

// WithDelimiter sets the delimiter for delimited-text extracts.
func WithDelimiter(d rune) Option {
	return func(l *Loader) {
		l.parseOpts = append(l.parseOpts, helpers.WithDelimiter(d))
	}
}

// WithFetchTimeout bounds each individual fetch. Zero means no bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Loader reading from f.
func New(f source.Fetcher, opts ...Option) *Loader {
	l := &Loader{fetcher: f, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	l.parseOpts = append(l.parseOpts, helpers.WithLogger(l.logger))
	return l
}

type job struct {
	name  string
	file  string
	field string // config path, for errors and warnings
	prior bool
}

type outcome struct {
	dataset *engine.Dataset
	warns   []string
}

// Load fetches every dataSources entry (and comparisonSources entry) of cfg.
func (l *Loader) Load(ctx context.Context, cfg *schema.ClientConfig) (*Result, error) {
	jobs := buildJobs(cfg)
	cols := cfg.Columns()
	slots := make([]outcome, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			out, err := l.loadOne(gctx, cfg.ClientID, j, cols)
			if err != nil {
				return err
			}
			slots[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Current: engine.NewDatasets(cols)}
	for i, j := range jobs {
		res.Warnings = append(res.Warnings, slots[i].warns...)
		if j.prior {
			if res.Prior == nil {
				prior := engine.NewDatasets(cols)
				res.Prior = &prior
			}
			res.Prior.Sources[j.name] = slots[i].dataset
			continue
		}
		res.Current.Sources[j.name] = slots[i].dataset
	}

	l.logger.Info("client data loaded",
		zap.String("client", cfg.ClientID),
		zap.Int("sources", len(jobs)),
		zap.Strings("missing", res.Current.MissingSources()),
		zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

func (l *Loader) loadOne(ctx context.Context, clientID string, j job, cols schema.ColumnMapping) (outcome, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	data, err := l.fetcher.Fetch(ctx, source.DataPath(clientID, j.file))
	if stderrors.Is(err, source.ErrNotFound) {
		missing := errors.DataSourceMissing(j.name, j.file)
		missing.Field = j.field
		l.logger.Warn("data source missing",
			zap.String("client", clientID), zap.String("source", j.name), zap.String("file", j.file))
		return outcome{
			dataset: engine.MissingDataset(j.name),
			warns:   []string{missing.Error()},
		}, nil
	}
	if err != nil {
		return outcome{}, fetchFailed(j, err)
	}

	ds, err := helpers.ParseExtract(j.name, j.file, data, l.parseOpts...)
	if err != nil {
		return outcome{}, fetchFailed(j, err)
	}

	l.logger.Debug("data source loaded",
		zap.String("client", clientID),
		zap.String("source", j.name),
		zap.Int("rows", ds.Len()),
		zap.Duration("elapsed", time.Since(start)))

	var warns []string
	if absent := cols.MissingColumns(j.name, ds.Columns); len(absent) > 0 && len(ds.Columns) > 0 {
		warns = append(warns, fmt.Sprintf("%s: %s has no column %s", j.field, j.file, strings.Join(absent, ", ")))
	}
	return outcome{dataset: ds, warns: warns}, nil
}

func fetchFailed(j job, err error) error {
	e := errors.DataSourceFetchFailed(j.name, j.file, err)
	e.Field = j.field
	return e
}

// buildJobs lists current sources then comparison sources, each sorted by name.
func buildJobs(cfg *schema.ClientConfig) []job {
	var jobs []job
	add := func(sources map[string]string, prefix string, prior bool) {
		names := make([]string, 0, len(sources))
		for name := range sources {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			jobs = append(jobs, job{
				name:  name,
				file:  sources[name],
				field: prefix + "." + name,
				prior: prior,
			})
		}
	}
	add(cfg.DataSources, "dataSources", false)
	add(cfg.ComparisonSources, "comparisonSources", true)
	return jobs
}
