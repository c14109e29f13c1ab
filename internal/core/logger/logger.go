package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/davmount/internal/interfaces"
	log "github.com/sirupsen/logrus"
)

type FullLogger interface {
	interfaces.Logger
	interfaces.FormatLogger
	interfaces.ErrorLogger
	interfaces.ErrorFormatLogger
	interfaces.LoggerCloser
}

type Logger struct {
	stdLogger *log.Logger
	errLogger *log.Logger
	files     []*os.File
}

// New builds a logger writing regular output to stdlog and errors to errlog.
// Each target is "stdout"/"stderr", "discard" or a file path. Log and Logf
// only print when verbose is set.
func New(verbose bool, stdlog, errlog string) (FullLogger, error) {
	var stdWriter, errWriter io.Writer
	var files []*os.File

	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	switch stdlog {
	case "stdout", "":
		stdWriter = os.Stdout
	case "stderr":
		stdWriter = os.Stderr
	case "discard":
		stdWriter = io.Discard
	default:
		f, err := openLogFile(stdlog)
		if err != nil {
			return nil, fmt.Errorf("cannot open standard log file: %w", err)
		}
		stdWriter = f
		files = append(files, f)
	}

	switch errlog {
	case "stderr", "":
		errWriter = os.Stderr
	case "stdout":
		errWriter = os.Stdout
	case "discard":
		errWriter = io.Discard
	default:
		if errlog == stdlog {
			errWriter = stdWriter
			break
		}
		f, err := openLogFile(errlog)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("cannot open error log file: %w", err)
		}
		errWriter = f
		files = append(files, f)
	}

	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	return &Logger{
		stdLogger: newLogrus(stdWriter, level),
		errLogger: newLogrus(errWriter, log.ErrorLevel),
		files:     files,
	}, nil
}

// Discard drops everything.
func Discard() FullLogger {
	return &Logger{
		stdLogger: newLogrus(io.Discard, log.PanicLevel),
		errLogger: newLogrus(io.Discard, log.PanicLevel),
	}
}

func newLogrus(w io.Writer, level log.Level) *log.Logger {
	l := log.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return l
}

func openLogFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("cannot create log directory: %w", err)
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func (l *Logger) Log(v ...any) {
	l.stdLogger.Debug(v...)
}

func (l *Logger) Logf(format string, v ...any) {
	l.stdLogger.Debugf(format, v...)
}

func (l *Logger) Error(v ...any) {
	l.errLogger.Error(v...)
}

func (l *Logger) Errorf(format string, v ...any) {
	l.errLogger.Errorf(format, v...)
}

func (l *Logger) Close() error {
	var err error
	for _, f := range l.files {
		err = errors.Join(err, f.Close())
	}
	l.files = nil
	return err
}
