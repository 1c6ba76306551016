package logging

import "github.com/ilsetl/ilsetl/pkg/ilsetl"

// NullLogger discards everything. Library types fall back to it when the
// caller passes no logger.
type NullLogger struct{}

// NewNullLogger returns a NullLogger.
func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (*NullLogger) Verbose(string, ...interface{}) {}
func (*NullLogger) Info(string, ...interface{})    {}
func (*NullLogger) Error(string, ...interface{})   {}

var _ ilsetl.Logger = (*NullLogger)(nil)
