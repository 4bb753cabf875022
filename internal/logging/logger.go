// Package logging provides structured logging for the agent's components.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ContextKey string

const (
	TraceIDKey ContextKey = "trace_id"
	PipeIDKey  ContextKey = "pipe_id"
)

// Logger wraps logrus.Logger, attaching a component field to every entry.
type Logger struct {
	*logrus.Logger
	component string
}

// New creates a Logger for the given component name.
func New(component, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, component: component}
}

// Wrap adapts an already-configured logrus.Logger (e.g. one pointed at a
// test hook) into a Logger, attaching the given component name.
func Wrap(base *logrus.Logger, component string) *Logger {
	return &Logger{Logger: base, component: component}
}

// NewFromEnv builds a Logger using LOG_LEVEL/LOG_FORMAT, defaulting to
// info/json.
func NewFromEnv(component string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(component, level, format)
}

// WithPipe returns an entry tagged with this component and the given pipe id.
func (l *Logger) WithPipe(pipeID string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"component": l.component,
		"pipe_id":   pipeID,
	})
}

func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("component", l.component)
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		entry = entry.WithField("trace_id", traceID)
	}
	if pipeID, ok := ctx.Value(PipeIDKey).(string); ok && pipeID != "" {
		entry = entry.WithField("pipe_id", pipeID)
	}
	return entry
}

func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["component"] = l.component
	return l.Logger.WithFields(fields)
}

func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"component": l.component,
		"error":     err.Error(),
	})
}

func (l *Logger) SetOutput(output io.Writer) { l.Logger.SetOutput(output) }

func NewTraceID() string { return uuid.New().String() }

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func WithPipeID(ctx context.Context, pipeID string) context.Context {
	return context.WithValue(ctx, PipeIDKey, pipeID)
}

// Domain-specific structured helpers. StartupSlow and ShutdownIncomplete emit
// the exact wording the lifecycle manager's timing properties depend on.

func (l *Logger) StartupSlow(serviceName string, budget time.Duration) {
	l.Logger.WithField("component", l.component).WithField("budget_ms", budget.Milliseconds()).
		Warnf("%s took longer than %s to start.", serviceName, budget)
}

func (l *Logger) ShutdownIncomplete(serviceName string, remaining []string) {
	l.Logger.WithField("component", l.component).WithField("remaining", remaining).
		Warnf("%s could not shut down all components within the maximum service stop interval.", serviceName)
}

func (l *Logger) ParseFailure(pipeID string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["pipe_id"] = pipeID
	l.WithError(err).WithFields(fields).Warn("failed to parse record")
}

func (l *Logger) DependencyTransition(pipeID, from, to string) {
	l.WithPipe(pipeID).WithFields(logrus.Fields{"from": from, "to": to}).Info("dependency state transition")
}

func (l *Logger) Failover(pipeID, fromRegion, toRegion, reason string) {
	l.WithPipe(pipeID).WithFields(logrus.Fields{
		"from_region": fromRegion,
		"to_region":   toRegion,
		"reason":      reason,
	}).Warn("sink failed over to secondary region")
}

func (l *Logger) Failback(pipeID, region string) {
	l.WithPipe(pipeID).WithField("region", region).Info("sink failed back to primary region")
}

func (l *Logger) Throttled(pipeID string, consecutiveErrors int, lastError error) {
	entry := l.WithPipe(pipeID).WithField("consecutive_errors", consecutiveErrors)
	if lastError != nil {
		entry = entry.WithField("last_error", lastError.Error())
	}
	entry.Warn("sink throttled after repeated failures")
}

func (l *Logger) CredentialsStale(profile string, age time.Duration) {
	l.WithFields(map[string]interface{}{
		"profile": profile,
		"age":     age.String(),
	}).Warn("credentials have not refreshed successfully within the expected interval")
}

var defaultLogger *Logger

func InitDefault(component, level, format string) { defaultLogger = New(component, level, format) }

func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = New("agent", "info", "json")
	}
	return defaultLogger
}

func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
}
