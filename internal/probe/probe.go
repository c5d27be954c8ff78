// Package probe exercises an object-storage bucket on a fixed schedule. Each
// iteration writes a uniquely named local file, uploads it, lists the bucket
// and then sleeps. Iterations run strictly one after another until the
// configured budget has elapsed; the first failure ends the run.
package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/tomasbasham/bucket-probe/internal/storage"
)

const (
	DefaultBudget      = 30 * time.Minute
	DefaultInterval    = 30 * time.Second
	DefaultCallTimeout = 1 * time.Minute
	DefaultContent     = "mydata"

	contentType = "text/plain"
)

// Options controls the behaviour of a probe run.
type Options struct {
	// Budget is the total wall-clock time the loop may start iterations in.
	// The check happens only before each iteration, so the final iteration
	// may finish after the budget. A zero budget runs nothing.
	Budget time.Duration

	// Interval is the pause after each iteration.
	Interval time.Duration

	// CallTimeout bounds each upload and list call. Zero disables the bound.
	CallTimeout time.Duration

	// Content is written to every local file.
	Content string

	// TempDir is where local files are written. Defaults to os.TempDir().
	TempDir string

	// Prefix is prepended to every remote object name.
	Prefix string

	// KeepLocal leaves local files in place after a successful upload.
	KeepLocal bool

	// Once runs exactly one iteration with no budget check and no sleep.
	Once bool
}

// DefaultOptions returns the schedule of the original bucket test: thirty
// minutes of iterations thirty seconds apart.
func DefaultOptions() Options {
	return Options{
		Budget:      DefaultBudget,
		Interval:    DefaultInterval,
		CallTimeout: DefaultCallTimeout,
		Content:     DefaultContent,
	}
}

// Report summarises a run.
type Report struct {
	// Iterations is the number of iterations that completed successfully.
	Iterations int

	// Objects lists the remote object names uploaded, in order.
	Objects []string
}

// Prober drives the upload loop against a single bucket.
type Prober struct {
	bucket   storage.Bucket
	opts     Options
	log      logrus.FieldLogger
	clock    Clock
	newID    func() string
	recorder Recorder
	metrics  *metrics
}

// Option customises a Prober.
type Option func(*proberConfig)

type proberConfig struct {
	log        logrus.FieldLogger
	clock      Clock
	newID      func() string
	recorder   Recorder
	registerer prometheus.Registerer
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *proberConfig) { c.log = l }
}

func WithClock(clock Clock) Option {
	return func(c *proberConfig) { c.clock = clock }
}

// WithIDGenerator replaces uuid.NewString as the source of object ids.
func WithIDGenerator(fn func() string) Option {
	return func(c *proberConfig) { c.newID = fn }
}

// WithRecorder sets where iterations are recorded. A nil r disables
// recording.
func WithRecorder(r Recorder) Option {
	return func(c *proberConfig) { c.recorder = r }
}

// WithRegisterer registers the prober's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *proberConfig) { c.registerer = reg }
}

// New creates a Prober for bucket.
func New(bucket storage.Bucket, opts Options, options ...Option) (*Prober, error) {
	if bucket == nil {
		return nil, errors.New("probe: bucket is required")
	}
	if opts.Interval < 0 {
		return nil, fmt.Errorf("probe: interval must not be negative, got %s", opts.Interval)
	}
	if opts.CallTimeout < 0 {
		return nil, fmt.Errorf("probe: call timeout must not be negative, got %s", opts.CallTimeout)
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}

	cfg := proberConfig{
		log:      logrus.StandardLogger(),
		clock:    realClock{},
		newID:    uuid.NewString,
		recorder: NewMemoryRecorder(),
	}
	for _, o := range options {
		o(&cfg)
	}
	if cfg.recorder == nil {
		cfg.recorder = nopRecorder{}
	}

	return &Prober{
		bucket:   bucket,
		opts:     opts,
		log:      cfg.log,
		clock:    cfg.clock,
		newID:    cfg.newID,
		recorder: cfg.recorder,
		metrics:  newMetrics(cfg.registerer),
	}, nil
}

// Recorder returns the recorder the prober writes iterations to.
func (p *Prober) Recorder() Recorder {
	return p.recorder
}

// Run executes iterations until the budget is exhausted, ctx is cancelled or
// a step fails. The returned report covers every iteration that completed,
// including on error.
func (p *Prober) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	if p.opts.Once {
		return report, p.iterate(ctx, 1, report)
	}

	deadline := p.clock.Now().Add(p.opts.Budget)
	for seq := 1; p.clock.Now().Before(deadline); seq++ {
		if err := p.iterate(ctx, seq, report); err != nil {
			return report, err
		}

		p.log.Infof("Waiting for %s...", p.opts.Interval)
		if err := p.clock.Sleep(ctx, p.opts.Interval); err != nil {
			return report, err
		}
	}

	return report, nil
}

func (p *Prober) iterate(ctx context.Context, seq int, report *Report) (err error) {
	id := p.newID()
	object := id
	if p.opts.Prefix != "" {
		object = path.Join(p.opts.Prefix, id)
	}
	localPath := filepath.Join(p.opts.TempDir, id)

	log := p.log.WithFields(logrus.Fields{
		"iteration": seq,
		"object":    object,
	})

	if _, err := p.recorder.Create(id, seq, object); err != nil {
		return fmt.Errorf("probe: failed to record iteration: %w", err)
	}
	defer func() {
		p.metrics.observeIteration(err)
		if err != nil {
			_ = p.recorder.MarkFailed(id, err)
		}
	}()

	// The write completes before the upload reads the same path.
	if err := os.WriteFile(localPath, []byte(p.opts.Content), 0o644); err != nil {
		return &StepError{Step: StepWrite, Object: object, Err: err}
	}
	log.Infof("%s is written.", localPath)

	_ = p.recorder.MarkRunning(id)

	if err := p.call(ctx, StepUpload, object, func(ctx context.Context) error {
		return p.upload(ctx, localPath, object)
	}); err != nil {
		return err
	}
	log.Infof("%s uploaded to %s", localPath, p.bucket.Name())

	var names []string
	if err := p.call(ctx, StepList, object, func(ctx context.Context) error {
		var err error
		names, err = p.bucket.List(ctx)
		return err
	}); err != nil {
		return err
	}

	log.Info("Files:")
	for _, name := range names {
		log.Info(name)
	}
	p.metrics.listed.Set(float64(len(names)))

	if !p.opts.KeepLocal {
		if err := os.Remove(localPath); err != nil {
			log.WithError(err).Warnf("failed to remove %s", localPath)
		}
	}

	_ = p.recorder.MarkComplete(id, len(names))
	report.Iterations++
	report.Objects = append(report.Objects, object)

	return nil
}

func (p *Prober) upload(ctx context.Context, localPath, object string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = p.bucket.Upload(ctx, &storage.UploadRequest{
		ObjectName:  object,
		Content:     f,
		ContentType: contentType,
	})
	return err
}

// call runs fn under the call timeout and classifies its failure.
func (p *Prober) call(ctx context.Context, step Step, object string, fn func(context.Context) error) error {
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if p.opts.CallTimeout > 0 {
		callCtx, cancel = context.WithTimeoutCause(ctx, p.opts.CallTimeout, ErrCallTimeout)
	}
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	p.metrics.observeCall(step, time.Since(start))

	if err == nil {
		return nil
	}
	if errors.Is(context.Cause(callCtx), ErrCallTimeout) {
		err = fmt.Errorf("%w after %s: %w", ErrCallTimeout, p.opts.CallTimeout, err)
	}
	return &StepError{Step: step, Object: object, Err: err}
}
