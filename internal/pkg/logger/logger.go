package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger define a interface para logging estruturado.
// A aplicação (Handler, Service) deve depender apenas desta interface.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error)
	Fatal(msg string, err error)
}

// ZapLogger é a implementação concreta da interface Logger sobre o zap.
type ZapLogger struct {
	log *zap.Logger
}

// NewLogger cria o Logger a partir do nível e do ambiente.
// Em "production" a saída é JSON; nos demais ambientes, console legível.
func NewLogger(level, environment string) Logger {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	log, err := cfg.Build(
		zap.AddCallerSkip(1),
		zap.Fields(zap.String("service", "almoxarifado"), zap.String("environment", environment)),
	)
	if err != nil {
		// Sem logger não há onde reportar; segue com um logger de exemplo.
		log = zap.NewExample()
	}
	return &ZapLogger{log: log}
}

// NewNop devolve um Logger que descarta tudo (testes).
func NewNop() Logger {
	return &ZapLogger{log: zap.NewNop()}
}

// New envolve um *zap.Logger já configurado.
func New(log *zap.Logger) Logger {
	return &ZapLogger{log: log}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func toZapFields(fields map[string]interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func (l *ZapLogger) Debug(msg string, fields map[string]interface{}) {
	l.log.Debug(msg, toZapFields(fields)...)
}

func (l *ZapLogger) Info(msg string, fields map[string]interface{}) {
	l.log.Info(msg, toZapFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields map[string]interface{}) {
	l.log.Warn(msg, toZapFields(fields)...)
}

func (l *ZapLogger) Error(msg string, err error) {
	l.log.Error(msg, zap.Error(err))
}

func (l *ZapLogger) Fatal(msg string, err error) {
	l.log.Fatal(msg, zap.Error(err))
}

// Sync descarrega buffers pendentes; chamado no encerramento.
func (l *ZapLogger) Sync() error {
	return l.log.Sync()
}
