package cmd

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/bucket-probe/internal/server"
)

type ServeOptions struct {
	log *LogOptions

	Host        string
	Port        int
	ServiceName string
	Owner       string

	iooption.IOStreams
}

var (
	serveLong = templates.LongDesc(`Start the hello-world HTTP server.`)

	serveExample = templates.Examples(`
		# Start on the default port
		probe serve

		# Start on a custom port, naming the service and its owner
		probe serve --port 9090 --service-name orders --owner team-payments`)
)

func NewServeOptions(streams iooption.IOStreams, log *LogOptions) *ServeOptions {
	return &ServeOptions{
		log:       log,
		IOStreams: streams,
	}
}

func NewServeCommand(o *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start the hello-world HTTP server",
		Long:    serveLong,
		Example: serveExample,
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

	cmd.Flags().StringVar(&o.Host, "host", "0.0.0.0", "Address to bind")
	cmd.Flags().IntVarP(&o.Port, "port", "p", 8080, "Port to listen on (default: $PORT or 8080)")
	cmd.Flags().StringVar(&o.ServiceName, "service-name", "", "Service name used in the greeting (default: $SERVICE_NAME)")
	cmd.Flags().StringVar(&o.Owner, "owner", "", "Service owner used in the greeting (default: $OWNER)")

	return cmd
}

func (o *ServeOptions) Complete(cmd *cobra.Command, args []string) error {
	_, err := applyEnv(cmd.Flags(), map[string]string{
		"port":         "PORT",
		"service-name": "SERVICE_NAME",
		"owner":        "OWNER",
	})
	return err
}

func (o *ServeOptions) Validate() error {
	if o.Port < 1 || o.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", o.Port)
	}
	return nil
}

func (o *ServeOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := o.log.Logger(o.Out)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	srv := server.New(server.Options{
		ServiceName: o.ServiceName,
		Owner:       o.Owner,
	}, nil, reg)

	addr := net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
	logger.Infof("Running on http://%s", addr)
	return srv.ListenAndServe(ctx, addr)
}
