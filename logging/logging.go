// Package logging provides logging functionality and configuration.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/writer"

	"github.com/threecommaio/bitly/core"
)

var (
	ErrParseLogLevel = errors.New("failed to parse log level")
)

// SetLevel sets the log level
func SetLevel(loglevel string) error {
	l, err := log.ParseLevel(loglevel)
	if err != nil {
		return fmt.Errorf("%w: %s - %s", ErrParseLogLevel, loglevel, err)
	}

	log.SetLevel(l)

	return nil
}

// ExtraFieldHook stamps every entry with the service name and environment
type ExtraFieldHook struct {
	service string
	env     string
}

func NewExtraFieldHook(service string, env string) *ExtraFieldHook {
	return &ExtraFieldHook{
		service: service,
		env:     env,
	}
}

func (h *ExtraFieldHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *ExtraFieldHook) Fire(entry *log.Entry) error {
	entry.Data["service"] = h.service
	entry.Data["env"] = h.env
	return nil
}

// Init set service name, environment and log level
func Init(service, env, level string) error {
	if err := SetLevel(level); err != nil {
		return err
	}
	core.SetEnvironment(env)

	log.SetOutput(io.Discard) // Send all logs to nowhere by default

	log.AddHook(&writer.Hook{ // Send logs with level higher than or equal to warning to stderr
		Writer: os.Stderr,
		LogLevels: []log.Level{
			log.PanicLevel,
			log.FatalLevel,
			log.ErrorLevel,
			log.WarnLevel,
		},
	})
	log.AddHook(&writer.Hook{ // Send trace, debug, and info logs to stdout
		Writer: os.Stdout,
		LogLevels: []log.Level{
			log.InfoLevel,
			log.DebugLevel,
			log.TraceLevel,
		},
	})

	log.SetFormatter(Formatter(env))
	log.AddHook(NewExtraFieldHook(service, env))

	log.Debug("logs for [debug,info] -> [stdout], [else] -> [stderr]")
	log.Debugf("production mode: %t", core.IsProduction())

	return nil
}

// Formatter returns the JSON formatter in production and a colored text formatter otherwise
func Formatter(env string) log.Formatter {
	switch env {
	case core.Production:
		return &log.JSONFormatter{
			FieldMap: log.FieldMap{
				log.FieldKeyMsg:   "message",
				log.FieldKeyLevel: "severity",
			},
		}
	default:
		return &log.TextFormatter{
			DisableColors: false,
			FullTimestamp: true,
			ForceColors:   true,
			PadLevelText:  true,
		}
	}
}
