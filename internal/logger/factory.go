package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// WriterStrategy wraps a sink in a particular log encoding
type WriterStrategy interface {
	CreateWriter(output io.Writer) io.Writer
}

// JSONWriterStrategy writes zerolog's native JSON lines
type JSONWriterStrategy struct{}

func (JSONWriterStrategy) CreateWriter(output io.Writer) io.Writer {
	return output
}

// ConsoleWriterStrategy writes human readable lines
type ConsoleWriterStrategy struct {
	NoColor bool
}

func (s ConsoleWriterStrategy) CreateWriter(output io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
		NoColor:    s.NoColor,
	}
}

// writerFactory picks a strategy per format and builds console and file sinks
type writerFactory struct {
	strategies map[LogFormat]WriterStrategy
}

func newWriterFactory() *writerFactory {
	return &writerFactory{
		strategies: map[LogFormat]WriterStrategy{
			FormatJSON:    JSONWriterStrategy{},
			FormatConsole: ConsoleWriterStrategy{NoColor: false},
			FormatText:    ConsoleWriterStrategy{NoColor: true},
		},
	}
}

func (wf *writerFactory) consoleWriter(cfg LoggerConfig) io.Writer {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	strategy, ok := wf.strategies[cfg.Format]
	if !ok {
		strategy = ConsoleWriterStrategy{}
	}
	return strategy.CreateWriter(out)
}

// fileWriter returns a rotating file sink. Colour codes never go to files.
func (wf *writerFactory) fileWriter(cfg LoggerConfig) (io.Writer, error) {
	if dir := filepath.Dir(cfg.FilePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		LocalTime:  true,
	}

	if cfg.Format == FormatJSON {
		return rotating, nil
	}
	return ConsoleWriterStrategy{NoColor: true}.CreateWriter(rotating), nil
}
