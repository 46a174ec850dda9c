package lib

import (
	"io"
	"os"
	"path/filepath"

	"github.com/Lumerin-protocol/proposal-verifier/internal/interfaces"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	timeLayout  = "2006-01-02T15:04:05"
	logFileName = "verifier.log"
)

type LoggerOptions struct {
	Level      string
	Color      bool
	IsProd     bool
	JSON       bool
	FolderPath string // enables file logging if not empty
}

func NewLogger(opts LoggerOptions) (*Logger, error) {
	log, err := newLogger(opts, nil)
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: log.Sugar()}, nil
}

// NewLoggerMemory additionally writes the log output to wr, used to inspect logs in tests
func NewLoggerMemory(opts LoggerOptions, wr io.Writer) (*Logger, error) {
	log, err := newLogger(opts, wr)
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: log.Sugar()}, nil
}

// NewTestLogger logs only to stdout
func NewTestLogger() *Logger {
	log, _ := newLogger(LoggerOptions{Level: "debug"}, nil)
	return &Logger{SugaredLogger: log.Sugar()}
}

// NewNopLogger discards everything
func NewNopLogger() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func newLogger(opts LoggerOptions, extraWriter io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var cores []zapcore.Core

	if opts.FolderPath != "" {
		fileCore, err := newFileCore(zapcore.DebugLevel, opts.IsProd, opts.JSON, filepath.Join(opts.FolderPath, logFileName))
		if err != nil {
			return nil, err
		}
		cores = append(cores, fileCore)
	}
	if extraWriter != nil {
		memoryCore := zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(extraWriter), level)
		cores = append(cores, memoryCore)
	}

	cores = append(cores, newConsoleCore(level, opts.Color, opts.IsProd, opts.JSON))

	var core zapcore.Core
	if len(cores) > 1 {
		core = zapcore.NewTee(cores...)
	} else {
		core = cores[0]
	}

	zapOpts := []zap.Option{
		zap.AddStacktrace(zap.ErrorLevel),
	}
	if !opts.IsProd {
		zapOpts = append(zapOpts, zap.Development())
	}

	return zap.New(core, zapOpts...), nil
}

func newConsoleCore(level zapcore.Level, color bool, isProd bool, isJSON bool) zapcore.Core {
	encoderCfg := newEncoderCfg(isProd, color, isJSON)

	var encoder zapcore.Encoder
	if isJSON {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
}

func newEncoderCfg(isProd bool, color bool, isJSON bool) zapcore.EncoderConfig {
	var encoderCfg zapcore.EncoderConfig
	if isProd {
		encoderCfg = zap.NewProductionEncoderConfig()
	} else {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	}

	if color && !isJSON {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return encoderCfg
}

func newFileCore(level zapcore.Level, isProd bool, isJSON bool, path string) (zapcore.Core, error) {
	encoderCfg := newEncoderCfg(isProd, false, isJSON)
	if !isJSON {
		encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	}

	var encoder zapcore.Encoder
	if isJSON {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		return nil, err
	}

	return zapcore.NewCore(encoder, zapcore.AddSync(file), level), nil
}

type Logger struct {
	*zap.SugaredLogger
}

func (l *Logger) Named(name string) interfaces.ILogger {
	return &Logger{l.SugaredLogger.Named(name)}
}

func (l *Logger) With(args ...interface{}) interfaces.ILogger {
	return &Logger{l.SugaredLogger.With(args...)}
}
