package logflags

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type sugared struct {
	*zap.SugaredLogger
}

func (s sugared) With(args ...interface{}) Logger {
	return sugared{s.SugaredLogger.With(args...)}
}

func makeLogger(flag bool, component string) Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:      "timestamp",
		LevelKey:     "level",
		NameKey:      "component",
		MessageKey:   "message",
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
		EncodeName:   zapcore.FullNameEncoder,
	}

	level := zapcore.ErrorLevel
	if flag {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(zapcore.AddSync(logOut)),
		level,
	)

	return sugared{zap.New(core, zap.AddCaller()).Named(component).Sugar()}
}

func HTTPLogger() Logger {
	return makeLogger(http, "http")
}

func RamLogger() Logger {
	return makeLogger(ram, "ram")
}

func ResolverLogger() Logger {
	return makeLogger(resolver, "resolver")
}

func SessionLogger() Logger {
	return makeLogger(session, "session")
}

func InjectLogger() Logger {
	return makeLogger(inject, "inject")
}
