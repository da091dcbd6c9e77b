package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger. Development writes a console log plus an
// app.log file; anything else is JSON to stdout.
func New(environment, level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	if environment == "development" {
		encCfg := zap.NewDevelopmentEncoderConfig()
		consoleEnc := zapcore.NewConsoleEncoder(encCfg)

		cores := []zapcore.Core{
			zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), lvl),
		}

		f, err := os.OpenFile("app.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
			cores = append(cores, zapcore.NewCore(fileEnc, zapcore.AddSync(f), lvl))
		}

		return zap.New(zapcore.NewTee(cores...))
	}

	encCfg := zap.NewProductionEncoderConfig()
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stdout), lvl)
	return zap.New(core)
}
