package funcs

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/eval"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// TraceLogger is the diagnostic sink for trace() calls.
type TraceLogger interface {
	Log(entry TraceEntry)
}

// TraceEntry is one structured trace record.
type TraceEntry struct {
	Timestamp  time.Time   `json:"timestamp"`
	Name       string      `json:"name"`
	Input      interface{} `json:"input"`
	Projection interface{} `json:"projection,omitempty"`
	Count      int         `json:"count"`
}

// DefaultTraceLogger writes trace entries to a writer, optionally as JSON.
type DefaultTraceLogger struct {
	mu     sync.Mutex
	writer io.Writer
	json   bool
}

// NewDefaultTraceLogger creates a new default trace logger.
func NewDefaultTraceLogger(writer io.Writer, jsonFormat bool) *DefaultTraceLogger {
	return &DefaultTraceLogger{
		writer: writer,
		json:   jsonFormat,
	}
}

// Log writes a trace entry to the logger's writer.
func (l *DefaultTraceLogger) Log(entry TraceEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.json {
		data, _ := json.Marshal(entry)
		_, _ = l.writer.Write(data)
		_, _ = l.writer.Write([]byte("\n"))
		return
	}

	if entry.Name != "" {
		_, _ = io.WriteString(l.writer, "[trace] "+entry.Name+": ")
	} else {
		_, _ = io.WriteString(l.writer, "[trace] ")
	}
	_, _ = io.WriteString(l.writer, formatTraced(entry.Input))
	_, _ = io.WriteString(l.writer, "\n")
	if entry.Projection != nil {
		_, _ = io.WriteString(l.writer, "[trace] "+entry.Name+" projection: ")
		_, _ = io.WriteString(l.writer, formatTraced(entry.Projection))
		_, _ = io.WriteString(l.writer, "\n")
	}
}

// NullTraceLogger discards all trace output.
type NullTraceLogger struct{}

// Log does nothing.
func (NullTraceLogger) Log(TraceEntry) {}

var (
	traceLogger   TraceLogger = NewDefaultTraceLogger(os.Stderr, false)
	traceLoggerMu sync.RWMutex
)

// SetTraceLogger sets the global trace logger.
// Use NullTraceLogger{} to silence trace output.
func SetTraceLogger(logger TraceLogger) {
	traceLoggerMu.Lock()
	defer traceLoggerMu.Unlock()
	traceLogger = logger
}

// GetTraceLogger returns the current trace logger.
func GetTraceLogger() TraceLogger {
	traceLoggerMu.RLock()
	defer traceLoggerMu.RUnlock()
	return traceLogger
}

func formatTraced(input interface{}) string {
	data, _ := json.Marshal(input)
	return string(data)
}

func init() {
	Register(FuncDef{
		Name:       "trace",
		MinArgs:    1,
		MaxArgs:    2,
		LambdaArgs: []int{1},
		Fn:         fnTrace,
	})

	Register(FuncDef{
		Name:    "defineVariable",
		MinArgs: 1,
		MaxArgs: 2,
		Fn:      fnDefineVariable,
	})

	Register(FuncDef{
		Name:    "now",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnNow,
	})

	Register(FuncDef{
		Name:    "today",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnToday,
	})

	Register(FuncDef{
		Name:    "timeOfDay",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnTimeOfDay,
	})
}

// fnTrace logs the input collection and returns it unchanged. With a
// projection argument the projected values are logged instead.
func fnTrace(_ *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	name := ""
	if s, ok := stringArg(args[0]); ok {
		name = s
	}

	entry := TraceEntry{
		Timestamp: time.Now(),
		Name:      name,
		Input:     collectionToInterface(input),
		Count:     len(input),
	}

	if len(args) > 1 && args[1].Lambda != nil {
		projected, err := args[1].Lambda.EvalScoped()
		if err != nil {
			return nil, err
		}
		entry.Projection = collectionToInterface(projected)
	}

	GetTraceLogger().Log(entry)
	return input, nil
}

// fnDefineVariable introduces a variable into the current scope and
// returns the input unchanged so the call composes in a path. Reserved
// names yield empty.
func fnDefineVariable(ctx *eval.Context, input types.Collection, args []Arg) (types.Collection, error) {
	name, ok := stringArg(args[0])
	if !ok {
		return nil, eval.NewError(eval.ErrType, "defineVariable expects a string name")
	}
	if eval.IsReservedName(name) {
		return types.EmptyCollection, nil
	}

	value := input
	if len(args) > 1 {
		value = args[1].Value
	}
	ctx.Scope().Set(name, value)
	return input, nil
}

// collectionToInterface renders a collection for trace serialization.
func collectionToInterface(col types.Collection) interface{} {
	result := make([]interface{}, len(col))
	for i, item := range col {
		result[i] = item.String()
	}
	return result
}

// stringArg extracts a singleton string argument.
func stringArg(arg Arg) (string, bool) {
	if arg.Value.Empty() {
		return "", false
	}
	s, ok := arg.Value[0].(types.String)
	if !ok {
		return "", false
	}
	return s.Value(), true
}

// fnNow returns the current date and time.
func fnNow(_ *eval.Context, _ types.Collection, _ []Arg) (types.Collection, error) {
	return types.Collection{types.NewDateTimeFromTime(time.Now())}, nil
}

// fnToday returns the current date.
func fnToday(_ *eval.Context, _ types.Collection, _ []Arg) (types.Collection, error) {
	return types.Collection{types.NewDateFromTime(time.Now())}, nil
}

// fnTimeOfDay returns the current time.
func fnTimeOfDay(_ *eval.Context, _ types.Collection, _ []Arg) (types.Collection, error) {
	return types.Collection{types.NewTimeFromGoTime(time.Now())}, nil
}
