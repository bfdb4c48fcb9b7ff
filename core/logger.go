package core

type (
	// Logger is any service that can log & report app events.
	// expected args: error, map[string]interface{}, Actor
	Logger interface {
		Debug(msg string, args ...interface{})
		Info(msg string, args ...interface{})
		Warn(msg string, args ...interface{})
		Error(msg string, args ...interface{})
		Fatal(msg string, args ...interface{})
	}

	// Actor identifies the staff member behind a request (coordinator username or mentor code).
	Actor struct {
		ID       string
		Username string
	}
)

// NopLogger discards everything. Used by tests and CLI dry runs.
type NopLogger struct{}

var _ Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}
