package logger

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServiceName is attached to every log line.
const ServiceName = "scs-recovery-server"

// Init initializes the global zerolog logger.
func Init(logLevelStr string, appEnv string) {
	InitWithWriter(logLevelStr, appEnv, os.Stdout)
}

// InitWithWriter is Init with an explicit destination.
func InitWithWriter(logLevelStr string, appEnv string, out io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	parsedLevel, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(logLevelStr)))
	if err != nil || logLevelStr == "" {
		parsedLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsedLevel)

	output := out
	ctx := zerolog.New(output).With().Timestamp().Str("service", ServiceName)
	if isDevelopment(appEnv) {
		output = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		ctx = zerolog.New(output).With().Timestamp().Caller()
	}
	log.Logger = ctx.Logger()

	if err != nil {
		log.Warn().Err(err).Msgf("Invalid log level '%s', defaulting to 'info'", logLevelStr)
	}

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

func isDevelopment(appEnv string) bool {
	env := strings.ToLower(appEnv)
	return env == "development" || env == "dev"
}
