package log

import (
	"io"
	"os"

	"github.com/tendermint/tendermint/libs/cli/flags"
	"github.com/tendermint/tendermint/libs/log"
)

const (
	FormatPlain = "plain"
	FormatJSON  = "json"
)

var logger log.Logger = log.NewNopLogger()

// InitLog builds the process logger. Path "stdout" keeps the default
// destination; level follows the tendermint level flag syntax.
func InitLog(format, path, level string) {
	var dest io.Writer = os.Stdout

	if path != "stdout" {
		file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			panic(err)
		}

		dest = file
	}

	var l log.Logger

	switch format {
	case FormatJSON:
		l = log.NewTMJSONLogger(dest)
	case FormatPlain:
		l = log.NewTMLogger(dest)
	default:
		panic("unsupported log format")
	}

	l, err := flags.ParseLogLevel(level, l, "info")
	if err != nil {
		panic(err)
	}

	SetLogger(l)
}

func SetLogger(l log.Logger) {
	logger = l
}

func Info(msg string, ctx ...interface{}) {
	logger.Info(msg, ctx...)
}

func Error(msg string, ctx ...interface{}) {
	logger.Error(msg, ctx...)
}

func Fatal(msg string, ctx ...interface{}) {
	logger.Error(msg, ctx...)
	os.Exit(1)
}

func With(keyvals ...interface{}) log.Logger {
	return logger.With(keyvals...)
}
