package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cliflag "github.com/tomasbasham/cli-runtime/flag"
	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/printer"
	"github.com/tomasbasham/cli-runtime/templates"
)

var (
	rootLong = templates.LongDesc(`
		Exercise an object-storage bucket on a schedule, or run a hello-world
		HTTP server.`)

	rootExamples = templates.Examples(`
		# Probe a GCS bucket using Application Default Credentials
		BUCKET_NAME=my-bucket probe run

		# Start the hello-world server
		probe serve --service-name orders --owner team-payments`)

	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// ProbeOptions defines the options for the `probe` command.
type ProbeOptions struct {
	LogOptions

	iooption.IOStreams
}

// NewProbeOptions provides an initialised ProbeOptions instance.
func NewProbeOptions(streams iooption.IOStreams) *ProbeOptions {
	return &ProbeOptions{
		IOStreams: streams,
	}
}

// NewRootCommand creates the `probe` command with default arguments.
func NewRootCommand() *cobra.Command {
	options := NewProbeOptions(iooption.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	})

	return NewRootCommandWithArgs(options)
}

// NewRootCommandWithArgs creates the `probe` command and its nested
// children.
func NewRootCommandWithArgs(o *ProbeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "probe [command]",
		Version:               versionInfo(),
		DisableFlagsInUseLine: true,
		Short:                 "Object-storage probe and hello-world server",
		Long:                  rootLong,
		Example:               rootExamples,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}

	printerOpts := printer.WarningPrinterOptions{Color: true}
	printer := printer.NewWarningPrinter(o.ErrOut, printerOpts)
	cmd.SetGlobalNormalizationFunc(cliflag.WarnWordSepNormalizeFunc(printer))

	o.LogOptions.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewRunCommand(NewRunOptions(o.IOStreams, &o.LogOptions)))
	cmd.AddCommand(NewServeCommand(NewServeOptions(o.IOStreams, &o.LogOptions)))

	// The global normalisation function ensures that all flags specified meet
	// the desired format, changing users' input if necessary.
	cmd.SetGlobalNormalizationFunc(cliflag.WordSepNormalizeFunc())

	return cmd
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
