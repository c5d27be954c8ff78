package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// LogOptions configures the logger shared by every subcommand.
type LogOptions struct {
	Level  string
	Format string
}

func (o *LogOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Level, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&o.Format, "log-format", "text", "Log format (text, json)")
}

// Logger builds a logrus logger writing to out.
func (o *LogOptions) Logger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(o.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", o.Level, err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)

	switch o.Format {
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q", o.Format)
	}

	return logger, nil
}
