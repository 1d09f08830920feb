// Package logger 全局日志
//
// 基于zap，级别、格式和输出位置由 config.Log 决定，写文件时用lumberjack按大小滚动。
// 包级函数占用一层调用栈，caller指向调用方。
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/S-FND/fnd1-sub000/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	base  *zap.Logger
	level = zap.NewAtomicLevel()
	once  sync.Once
)

// InitLogger 按 config.Log 初始化，只生效一次
func InitLogger() {
	once.Do(func() {
		base = build()
		zap.ReplaceGlobals(base.WithOptions(zap.AddCallerSkip(-1)))
	})
}

// build 组装encoder、输出和级别
func build() *zap.Logger {
	cfg := config.Log

	if l, err := zapcore.ParseLevel(cfg.Level); err == nil {
		level.SetLevel(l)
	} else {
		fmt.Fprintf(os.Stderr, "日志级别 %q 无效，使用info\n", cfg.Level)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	var sinks []zapcore.WriteSyncer
	if cfg.ToStdout() {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}
	if cfg.ToFile() {
		if sink, err := fileSink(); err != nil {
			fmt.Fprintf(os.Stderr, "日志文件不可用，改为输出到stderr: %v\n", err)
			sinks = append(sinks, zapcore.Lock(os.Stderr))
		} else {
			sinks = append(sinks, sink)
		}
	}

	return zap.New(
		zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	).With(zap.String("service", cfg.Service))
}

// fileSink 滚动日志文件
func fileSink() (zapcore.WriteSyncer, error) {
	file := config.Log.File
	if err := os.MkdirAll(filepath.Dir(file.Path), 0o755); err != nil {
		return nil, err
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxAge:     file.MaxAgeDays,
		MaxBackups: file.MaxBackups,
		Compress:   file.Compress,
	}), nil
}

// Debug 级别日志
func Debug(msg string, fields ...zap.Field) {
	InitLogger()
	base.Debug(msg, fields...)
}

// Info 级别日志
func Info(msg string, fields ...zap.Field) {
	InitLogger()
	base.Info(msg, fields...)
}

// Warn 级别日志
func Warn(msg string, fields ...zap.Field) {
	InitLogger()
	base.Warn(msg, fields...)
}

// Error 级别日志，附带调用栈
func Error(msg string, fields ...zap.Field) {
	InitLogger()
	base.Error(msg, fields...)
}

// Fatal 记录后退出进程
func Fatal(msg string, fields ...zap.Field) {
	InitLogger()
	base.Fatal(msg, fields...)
}

// Sync 刷新缓冲
func Sync() error {
	if base == nil {
		return nil
	}
	return base.Sync()
}
