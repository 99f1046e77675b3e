package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	log = zerolog.New(io.Discard)
)

// Logging builds the process logger from the IGD_LOG_* environment variables
// and attaches it to ctx. The returned func closes the log file, if any.
func Logging(ctx context.Context) (context.Context, func(), error) {
	cleanup := func() {}
	logDir := os.Getenv("IGD_LOG_DIR")
	if logDir == "" {
		if cacheDir, _ := os.UserCacheDir(); cacheDir != "" {
			logDir = filepath.Join(cacheDir, "igdctl")
			if err := os.Mkdir(logDir, os.ModeDir|0700); err != nil {
				if !os.IsExist(err) {
					logDir = ""
				}
			}
		}
	}

	var output io.Writer
	if logDir != "" {
		logFile := &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "igdctl.log"),
			MaxSize:    5, // megabytes
			MaxBackups: 3,
			MaxAge:     28,
		}
		output = logFile
		cleanup = func() {
			logFile.Close()
		}
	} else {
		output = io.Discard
	}

	if os.Getenv("IGD_LOG_STDERR") != "" {
		output = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	var (
		levelString = os.Getenv("IGD_LOG_LEVEL")
		level       = zerolog.InfoLevel
		err         error
	)
	if levelString != "" {
		level, err = zerolog.ParseLevel(levelString)
		if err != nil {
			return ctx, cleanup, fmt.Errorf("unable to parse log level from IGD_LOG_LEVEL: %s", err.Error())
		}
	}

	logContext := zerolog.New(output).
		Level(level).
		With().
		Timestamp()
	if level == zerolog.DebugLevel {
		logContext = logContext.
			Stack().
			Caller()
	}

	log = logContext.Logger()

	ctx = log.WithContext(ctx)
	return ctx, cleanup, nil
}

func Logger() *zerolog.Logger {
	return &log
}
