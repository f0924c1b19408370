package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		// Text is easier to read while developing
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// NewWithHandler builds a logger on top of an arbitrary handler.
func NewWithHandler(handler slog.Handler) *Logger {
	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops every record. Used by tests.
func Discard() *Logger {
	return NewWithHandler(slog.NewTextHandler(io.Discard, nil))
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("request_id", requestID))}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("error", err.Error()))}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", c.GetString("request_id")),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("request_id", c.GetString("request_id")),
	)
}

// Inventory logging methods

// LogReservation logs a successful ticket reservation
func (l *Logger) LogReservation(ctx context.Context, eventID string, count, remaining int) {
	l.Logger.DebugContext(ctx,
		"Tickets Reserved",
		slog.String("event_id", eventID),
		slog.Int("count", count),
		slog.Int("remaining", remaining),
	)
}

// LogRelease logs tickets returned to an event
func (l *Logger) LogRelease(ctx context.Context, eventID string, count int) {
	l.Logger.DebugContext(ctx,
		"Tickets Released",
		slog.String("event_id", eventID),
		slog.Int("count", count),
	)
}

// LogLockContention logs a lock wait that ran out of budget
func (l *Logger) LogLockContention(ctx context.Context, eventID string, waited time.Duration) {
	l.Logger.WarnContext(ctx,
		"Event Lock Contention",
		slog.String("event_id", eventID),
		slog.Duration("waited", waited),
	)
}

// Booking logging methods

// LogBookingConfirmed logs when a booking is persisted
func (l *Logger) LogBookingConfirmed(ctx context.Context, bookingID, eventID, userID string, tickets int) {
	l.Logger.InfoContext(ctx,
		"Booking Confirmed",
		slog.String("booking_id", bookingID),
		slog.String("event_id", eventID),
		slog.String("user_id", userID),
		slog.Int("tickets", tickets),
	)
}

// LogBookingCancelled logs when a booking is cancelled
func (l *Logger) LogBookingCancelled(ctx context.Context, bookingID, eventID, userID string) {
	l.Logger.InfoContext(ctx,
		"Booking Cancelled",
		slog.String("booking_id", bookingID),
		slog.String("event_id", eventID),
		slog.String("user_id", userID),
	)
}

// LogBookingFailed logs a booking attempt that ended in the failed state
func (l *Logger) LogBookingFailed(ctx context.Context, eventID, userID string, path []string, err error) {
	l.Logger.WarnContext(ctx,
		"Booking Failed",
		slog.String("event_id", eventID),
		slog.String("user_id", userID),
		slog.String("path", strings.Join(path, " -> ")),
		slog.String("error", err.Error()),
	)
}

// LogCompensationFailed logs reserved tickets that could not be returned.
// These records need out-of-band reconciliation.
func (l *Logger) LogCompensationFailed(ctx context.Context, eventID string, count int, cause, releaseErr error) {
	l.Logger.ErrorContext(ctx,
		"Compensation Failed",
		slog.String("event_id", eventID),
		slog.Int("tickets", count),
		slog.String("cause", cause.Error()),
		slog.String("release_error", releaseErr.Error()),
	)
}

// Helper methods for common patterns

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.InfoContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
