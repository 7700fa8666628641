package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls where and how verbosely the logger writes
type Options struct {
	// Dir receives the JSON log file; "logs" when empty
	Dir string

	// ConsoleLevel filters the console output; the file always gets Debug
	ConsoleLevel zapcore.Level

	// JSONConsole switches the console output to JSON, for the HTTP service
	JSONConsole bool

	// Console receives the console output; os.Stdout when nil
	Console zapcore.WriteSyncer
}

// InitLogger initializes a zap logger with console and file outputs
// env is used to prefix the log file name
func InitLogger(env string) (*zap.Logger, func() error, error) {
	return New(env, Options{ConsoleLevel: zapcore.InfoLevel})
}

// New builds a logger teeing a console core and a JSON file core named after env and the
// start time. The returned func flushes the logger and closes the file.
func New(env string, opts Options) (*zap.Logger, func() error, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	if env == "" {
		env = "default"
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logFileName := filepath.Join(dir, fmt.Sprintf("%s_%s.log", env, timestamp))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	fileEncoderConfig := zap.NewProductionEncoderConfig()
	fileEncoderConfig.TimeKey = "timestamp"
	fileEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	fileEncoder := zapcore.NewJSONEncoder(fileEncoderConfig)

	var consoleEncoder zapcore.Encoder
	if opts.JSONConsole {
		consoleEncoder = zapcore.NewJSONEncoder(fileEncoderConfig)
	} else {
		consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()
		consoleEncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEncoder = zapcore.NewConsoleEncoder(consoleEncoderConfig)
	}

	console := opts.Console
	if console == nil {
		console = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, console, opts.ConsoleLevel),
		zapcore.NewCore(fileEncoder, zapcore.AddSync(logFile), zapcore.DebugLevel),
	)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	closeFn := func() error {
		// stdout may reject sync
		_ = logger.Sync()
		return logFile.Close()
	}
	return logger, closeFn, nil
}
