package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/nwidger/jsoncolor"
)

const (
	colorReset   = "\033[0m"
	colorFaint   = "\033[2m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
)

// OperatorSlogHandler writes every record as redacted JSON to its file
// writers and additionally prints a human readable line to stderr.
type OperatorSlogHandler struct {
	logLevel    *slog.Level
	handlerLock *sync.RWMutex
	inner       *slog.JSONHandler
	attrs       []slog.Attr
	group       string
}

func NewOperatorSlogHandler(logLevel *slog.Level, handlerLock *sync.RWMutex, jsonHandlerWriters ...io.Writer) slog.Handler {
	return &OperatorSlogHandler{
		logLevel:    logLevel,
		handlerLock: handlerLock,
		attrs:       []slog.Attr{},
		group:       "",
		inner: slog.NewJSONHandler(io.MultiWriter(jsonHandlerWriters...), &slog.HandlerOptions{
			AddSource: true,
			Level:     slog.LevelDebug,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Value.Kind() == slog.KindString {
					val := attr.Value.String()
					val = eraseSecrets(val)
					attr.Value = slog.AnyValue(val)
				}
				return attr
			},
		}),
	}
}

func (self *OperatorSlogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return self.inner.Enabled(ctx, level)
}

func (self *OperatorSlogHandler) Handle(ctx context.Context, record slog.Record) error {
	err := self.inner.Handle(ctx, record)
	if err != nil {
		return err
	}

	self.handlerLock.RLock()
	slogLevel := *self.logLevel
	self.handlerLock.RUnlock()

	if record.Level < slogLevel {
		return nil
	}

	component, err := self.getComponent()
	if err != nil {
		panic("The LogManager enforces a component attribute to exist: " + err.Error())
	}

	source := getSourceString(record)
	message := eraseSecrets(record.Message)
	payload := getPayload(record)

	return printLogLine(os.Stderr, isatty.IsTerminal(os.Stderr.Fd()), record.Level.String(), component, source, message, payload)
}

func printLogLine(
	writer io.Writer,
	enableColor bool,
	level string,
	component string,
	source string,
	message string,
	payload map[string]any,
) error {
	payloadString := ""
	if enableColor {
		switch level {
		case "DEBUG":
			level = colorCyan + level + colorReset
		case "INFO":
			level = colorGreen + level + colorReset
		case "WARN":
			level = colorYellow + level + colorReset
		case "ERROR":
			level = colorRed + level + colorReset
		default:
			panic(fmt.Errorf("unsupported error level: %s", level))
		}
		component = colorMagenta + component + colorReset
		source = colorFaint + source + colorReset

		if len(payload) > 0 {
			data, err := jsoncolor.Marshal(payload)
			if err != nil {
				panic(fmt.Errorf("failed to marshal json: %s", err.Error()))
			}
			payloadString = string(data)
		}
	} else {
		if len(payload) > 0 {
			data, err := json.Marshal(payload)
			if err != nil {
				panic(fmt.Errorf("failed to marshal json: %s", err.Error()))
			}
			payloadString = string(data)
		}
	}

	_, err := fmt.Fprintf(writer, "%s %s %s %s %s\n", level, component, source, message, payloadString)
	return err
}

func (self *OperatorSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newSlogHandler := OperatorSlogHandler{}

	newSlogHandler.logLevel = self.logLevel
	newSlogHandler.handlerLock = self.handlerLock
	newSlogHandler.attrs = append(self.attrs, attrs...)
	newSlogHandler.group = self.group
	newSlogHandler.inner = self.inner.WithAttrs(attrs).(*slog.JSONHandler)

	return &newSlogHandler
}

func (self *OperatorSlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return self
	}

	newSlogHandler := OperatorSlogHandler{}

	newSlogHandler.logLevel = self.logLevel
	newSlogHandler.handlerLock = self.handlerLock
	newSlogHandler.attrs = self.attrs
	newSlogHandler.group = name
	newSlogHandler.inner = self.inner.WithGroup(name).(*slog.JSONHandler)

	return &newSlogHandler
}

func (self *OperatorSlogHandler) getComponent() (string, error) {
	for _, attr := range self.attrs {
		if attr.Key == "component" {
			return attr.Value.String(), nil
		}
	}
	return "", fmt.Errorf("failed to find record component")
}

func getSourceString(record slog.Record) string {
	frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
	file := frame.File

	if strings.Contains(file, "devspace-operator/") {
		file = strings.SplitAfterN(file, "devspace-operator/", 2)[1]
	}

	return fmt.Sprintf("%s:%d", file, frame.Line)
}

func getPayload(record slog.Record) map[string]any {
	attrs := make(map[string]any)
	record.Attrs(func(a slog.Attr) bool {
		errorData, ok := a.Value.Any().(error)
		if ok {
			attrs[a.Key] = eraseSecrets(errorData.Error())
			return true
		}
		stringerData, ok := a.Value.Any().(fmt.Stringer)
		if ok {
			attrs[a.Key] = eraseSecrets(stringerData.String())
			return true
		}
		if a.Value.Kind() == slog.KindString {
			attrs[a.Key] = eraseSecrets(a.Value.String())
			return true
		}
		attrs[a.Key] = a.Value.Any()
		return true
	})

	return attrs
}

// Feature: rewrite log stream to [REDACT] known secrets
func eraseSecrets(data string) string {
	for _, b := range SecretArray() {
		data = strings.ReplaceAll(data, b, REDACTED)
	}
	return data
}
