package intercept

import (
	"fmt"
	"reflect"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Unserializable replaces an argument value that could not be encoded.
const Unserializable = "<unserializable>"

// Logging logs every call it intercepts at debug level, with its arguments and duration.
type Logging struct {
	logger *zap.Logger
}

var _ Interceptor = (*Logging)(nil)

// NewLogging returns a logging interceptor writing to logger.
func NewLogging(logger *zap.Logger) *Logging {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logging{logger: logger}
}

func (l *Logging) Intercept(inv Invocation) {
	fields := []zap.Field{
		zap.String("target", typeName(inv.Target())),
		zap.String("method", inv.Method()),
		zap.Strings("args", FormatArguments(inv.Arguments())),
	}
	l.logger.Debug("calling", fields...)

	start := time.Now()
	inv.Proceed()
	elapsed := zap.Duration("elapsed", time.Since(start))

	if err := inv.Err(); err != nil {
		l.logger.Debug("call errored", append(fields[:len(fields):len(fields)], elapsed, zap.Error(err))...)
		return
	}
	l.logger.Debug("call finished", append(fields[:len(fields):len(fields)], elapsed)...)
}

type argument struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// FormatArguments renders each argument as a JSON object holding its index, type and
// encoded value. Values that cannot be encoded are rendered as Unserializable.
func FormatArguments(args []any) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		entry := argument{Index: i, Type: typeName(arg), Value: encode(arg)}
		s, err := json.MarshalToString(entry)
		if err != nil {
			s = fmt.Sprintf(`{"index":%d,"type":%q,"value":%q}`, i, entry.Type, Unserializable)
		}
		out = append(out, s)
	}
	return out
}

func encode(v any) (s string) {
	defer func() {
		if recover() != nil {
			s = Unserializable
		}
	}()
	s, err := json.MarshalToString(v)
	if err != nil {
		return Unserializable
	}
	return s
}

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}
