package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/bucket-probe/internal/probe"
	"github.com/tomasbasham/bucket-probe/internal/server"
	"github.com/tomasbasham/bucket-probe/internal/storage"
)

type RunOptions struct {
	log *LogOptions

	Provider        string
	Bucket          string
	CredentialsFile string
	Endpoint        string
	Region          string
	Dir             string

	// Read from the environment only; never accepted as flags.
	accessKey string
	secretKey string

	Budget      time.Duration
	Interval    time.Duration
	CallTimeout time.Duration
	Content     string
	Prefix      string
	TempDir     string
	KeepLocal   bool
	Once        bool

	Listen string

	iooption.IOStreams
}

var (
	runLong = templates.LongDesc(`
		Repeatedly write a uniquely named file, upload it to a bucket and list
		the bucket's contents.

		The loop runs until the budget elapses, sleeping for the interval after
		each iteration. The first failed write, upload or list ends the run with
		a non-zero exit code.`)

	runExample = templates.Examples(`
		# Probe the bucket named by $BUCKET_NAME for thirty minutes
		probe run

		# Probe a MinIO bucket once
		probe run --provider s3 --endpoint http://localhost:9000 --bucket test --once

		# Probe for five minutes, serving status on :8080
		probe run --bucket my-bucket --budget 5m --interval 10s --listen :8080`)
)

func NewRunOptions(streams iooption.IOStreams, log *LogOptions) *RunOptions {
	return &RunOptions{
		log:       log,
		IOStreams: streams,
	}
}

func NewRunCommand(o *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "run [flags]",
		DisableFlagsInUseLine: true,
		Short:                 "Upload and list objects in a bucket on a schedule",
		Long:                  runLong,
		Example:               runExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			if err := o.Run(); err != nil {
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()

	flags.StringVarP(&o.Bucket, "bucket", "b", "", "Bucket name (default: $BUCKET_NAME)")
	flags.StringVar(&o.Provider, "provider", string(storage.ProviderGCS), "Storage provider (gcs, s3, local)")
	flags.StringVar(&o.CredentialsFile, "credentials-file", "", "GCS service account key (default: $GOOGLE_APPLICATION_CREDENTIALS)")
	flags.StringVar(&o.Endpoint, "endpoint", "", "Storage endpoint override (default: $STORAGE_ENDPOINT)")
	flags.StringVar(&o.Region, "region", "", "S3 region (default: $AWS_REGION or us-east-1)")
	flags.StringVar(&o.Dir, "dir", "", "Root directory for the local provider (default: current directory)")

	flags.DurationVar(&o.Budget, "budget", probe.DefaultBudget, "Total time to keep starting iterations")
	flags.DurationVarP(&o.Interval, "interval", "i", probe.DefaultInterval, "Pause between iterations")
	flags.DurationVar(&o.CallTimeout, "call-timeout", probe.DefaultCallTimeout, "Timeout for each upload and list call (0 disables)")
	flags.StringVar(&o.Content, "content", probe.DefaultContent, "Content written to every file")
	flags.StringVar(&o.Prefix, "prefix", "", "Prefix for remote object names")
	flags.StringVar(&o.TempDir, "temp-dir", "", "Directory for local files (default: system temp directory)")
	flags.BoolVar(&o.KeepLocal, "keep-local", false, "Keep local files after a successful upload")
	flags.BoolVar(&o.Once, "once", false, "Run a single iteration and exit")
	flags.StringVar(&o.Listen, "listen", "", "Serve status and metrics on this address while running")

	return cmd
}

func (o *RunOptions) Complete(cmd *cobra.Command, args []string) error {
	v, err := applyEnv(cmd.Flags(), map[string]string{
		"bucket":           "BUCKET_NAME",
		"credentials-file": "GOOGLE_APPLICATION_CREDENTIALS",
		"endpoint":         "STORAGE_ENDPOINT",
		"region":           "AWS_REGION",
		"access-key":       "AWS_ACCESS_KEY_ID",
		"secret-key":       "AWS_SECRET_ACCESS_KEY",
	})
	if err != nil {
		return err
	}

	o.accessKey = v.GetString("access-key")
	o.secretKey = v.GetString("secret-key")
	return nil
}

func (o *RunOptions) Validate() error {
	if len(o.Bucket) == 0 {
		return fmt.Errorf("bucket is required: set --bucket or BUCKET_NAME")
	}

	switch storage.Provider(o.Provider) {
	case storage.ProviderGCS, storage.ProviderS3, storage.ProviderLocal:
	default:
		return fmt.Errorf("unknown provider %q", o.Provider)
	}

	for _, segment := range strings.Split(o.Prefix, "/") {
		if segment == ".." {
			return fmt.Errorf("prefix must not contain \"..\" segments")
		}
	}

	if o.Budget < 0 {
		return fmt.Errorf("budget must not be negative")
	}
	if o.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	if o.CallTimeout < 0 {
		return fmt.Errorf("call timeout must not be negative")
	}

	return nil
}

func (o *RunOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := o.log.Logger(o.Out)
	if err != nil {
		return err
	}

	bucket, err := storage.Open(ctx, storage.Config{
		Provider:        storage.Provider(o.Provider),
		Bucket:          o.Bucket,
		CredentialsFile: o.CredentialsFile,
		Endpoint:        o.Endpoint,
		Region:          o.Region,
		AccessKey:       o.accessKey,
		SecretKey:       o.secretKey,
		Dir:             o.Dir,
	})
	if err != nil {
		return fmt.Errorf("failed to open bucket: %w", err)
	}
	defer bucket.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := probe.NewMemoryRecorder()

	prober, err := probe.New(bucket, probe.Options{
		Budget:      o.Budget,
		Interval:    o.Interval,
		CallTimeout: o.CallTimeout,
		Content:     o.Content,
		TempDir:     o.TempDir,
		Prefix:      o.Prefix,
		KeepLocal:   o.KeepLocal,
		Once:        o.Once,
	},
		probe.WithLogger(logger.WithField("bucket", bucket.Name())),
		probe.WithRecorder(recorder),
		probe.WithRegisterer(reg),
	)
	if err != nil {
		return err
	}

	var report *probe.Report

	g, gctx := errgroup.WithContext(ctx)
	srvCtx, stopServer := context.WithCancel(gctx)
	defer stopServer()

	g.Go(func() error {
		defer stopServer()
		var err error
		report, err = prober.Run(gctx)
		return err
	})

	if o.Listen != "" {
		srv := server.New(server.Options{ServiceName: "probe"}, recorder, reg)
		logger.Infof("Serving status on %s", o.Listen)
		g.Go(func() error {
			return srv.ListenAndServe(srvCtx, o.Listen)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}

	logger.Infof("Completed %d iterations against %s", report.Iterations, bucket.Name())
	return nil
}
