package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level is a log severity.
type Level int

const (
	TRACE Level = iota
	DEBUG
	INFO
	WARN
	ERROR
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}

// String returns the upper-case level name.
func (l Level) String() string {
	if l < TRACE || l > ERROR {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

// MarshalJSON writes the level by name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// Component tags the part of the pipeline a message comes from.
type Component string

const (
	ComponentApp        Component = "app"
	ComponentChapterJS  Component = "chapterjs"
	ComponentImageList  Component = "imagelist"
	ComponentTiles      Component = "tiles"
	ComponentJSVM       Component = "jsvm"
	ComponentClient     Component = "client"
	ComponentReader     Component = "reader"
	ComponentDownloader Component = "downloader"
)

// AllComponents lists every component in pipeline order.
var AllComponents = []Component{
	ComponentApp,
	ComponentReader,
	ComponentChapterJS,
	ComponentImageList,
	ComponentJSVM,
	ComponentClient,
	ComponentTiles,
	ComponentDownloader,
}

// Format selects how entries are rendered.
type Format int

const (
	FormatText Format = iota
	FormatJSON
	FormatColor
)

// Config holds logger configuration.
type Config struct {
	Level      Level
	Format     Format
	Output     io.Writer
	Components map[Component]bool
	ShowCaller bool
	Timestamp  bool
}

// DefaultConfig enables INFO and above for the app component only.
func DefaultConfig() *Config {
	components := make(map[Component]bool, len(AllComponents))
	for _, c := range AllComponents {
		components[c] = c == ComponentApp
	}
	return &Config{
		Level:      INFO,
		Format:     FormatText,
		Output:     os.Stderr,
		Components: components,
	}
}

// Entry is one rendered log record.
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     Level                  `json:"level"`
	Component Component              `json:"component"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
}

// Logger writes entries for enabled components at or above the configured level.
type Logger struct {
	mu     sync.RWMutex
	config *Config
}

// New creates a logger. A nil config selects DefaultConfig.
func New(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Components == nil {
		config.Components = make(map[Component]bool)
	}
	if config.Output == nil {
		config.Output = os.Stderr
	}
	return &Logger{config: config}
}

// WithComponent returns a logger bound to component.
func (l *Logger) WithComponent(component Component) *ComponentLogger {
	return &ComponentLogger{logger: l, component: component}
}

// SetLevel changes the minimum level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.config.Level = level
	l.mu.Unlock()
}

// SetFormat changes the output format.
func (l *Logger) SetFormat(format Format) {
	l.mu.Lock()
	l.config.Format = format
	l.mu.Unlock()
}

// SetOutput changes the destination writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.config.Output = w
	l.mu.Unlock()
}

// EnableComponent turns on logging for component.
func (l *Logger) EnableComponent(component Component) {
	l.mu.Lock()
	l.config.Components[component] = true
	l.mu.Unlock()
}

// DisableComponent turns off logging for component.
func (l *Logger) DisableComponent(component Component) {
	l.mu.Lock()
	l.config.Components[component] = false
	l.mu.Unlock()
}

// Enabled reports whether a message of level from component would be written.
func (l *Logger) Enabled(level Level, component Component) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.config.Level && l.config.Components[component]
}

func (l *Logger) log(level Level, component Component, message string, fields map[string]interface{}) {
	if !l.Enabled(level, component) {
		return
	}

	entry := Entry{
		Timestamp: time.Now(),
		Level:     level,
		Component: component,
		Message:   message,
		Fields:    fields,
	}

	// Holding a write lock serializes writers that are not goroutine safe.
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.config.ShowCaller {
		// log <- ComponentLogger.log <- ComponentLogger.Info <- caller
		if _, file, line, ok := runtime.Caller(3); ok {
			entry.Caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
		}
	}

	var out string
	switch l.config.Format {
	case FormatJSON:
		data, _ := json.Marshal(entry)
		out = string(data)
	case FormatColor:
		out = l.render(entry, true)
	default:
		out = l.render(entry, false)
	}
	fmt.Fprintln(l.config.Output, out)
}

const (
	ansiReset = "\033[0m"
	ansiGray  = "\033[90m"
	ansiCyan  = "\033[36m"
	ansiKey   = "\033[33m"
	ansiValue = "\033[32m"
)

var levelColors = map[Level]string{
	TRACE: "\033[37m",
	DEBUG: "\033[94m",
	INFO:  "\033[92m",
	WARN:  "\033[93m",
	ERROR: "\033[91m",
}

func paint(s, color string, on bool) string {
	if !on {
		return s
	}
	return color + s + ansiReset
}

// render formats a text line; keys are sorted so output is stable.
func (l *Logger) render(entry Entry, color bool) string {
	var b strings.Builder
	if l.config.Timestamp {
		b.WriteString(paint(entry.Timestamp.Format("2006-01-02 15:04:05"), ansiGray, color))
		b.WriteByte(' ')
	}
	b.WriteString(paint("["+entry.Level.String()+"]", levelColors[entry.Level], color))
	b.WriteByte(' ')
	b.WriteString(paint("["+string(entry.Component)+"]", ansiCyan, color))
	b.WriteByte(' ')
	b.WriteString(entry.Message)
	if entry.Caller != "" {
		b.WriteByte(' ')
		b.WriteString(paint("("+entry.Caller+")", ansiGray, color))
	}

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(paint(k, ansiKey, color))
		b.WriteByte('=')
		b.WriteString(paint(fmt.Sprint(entry.Fields[k]), ansiValue, color))
	}
	return b.String()
}

// ComponentLogger logs on behalf of one component.
type ComponentLogger struct {
	logger    *Logger
	component Component
}

// Trace logs at TRACE.
func (cl *ComponentLogger) Trace(message string, fields ...map[string]interface{}) {
	cl.log(TRACE, message, fields)
}

// Debug logs at DEBUG.
func (cl *ComponentLogger) Debug(message string, fields ...map[string]interface{}) {
	cl.log(DEBUG, message, fields)
}

// Info logs at INFO.
func (cl *ComponentLogger) Info(message string, fields ...map[string]interface{}) {
	cl.log(INFO, message, fields)
}

// Warn logs at WARN.
func (cl *ComponentLogger) Warn(message string, fields ...map[string]interface{}) {
	cl.log(WARN, message, fields)
}

// Error logs at ERROR.
func (cl *ComponentLogger) Error(message string, fields ...map[string]interface{}) {
	cl.log(ERROR, message, fields)
}

func (cl *ComponentLogger) log(level Level, message string, fields []map[string]interface{}) {
	var merged map[string]interface{}
	switch len(fields) {
	case 0:
	case 1:
		merged = fields[0]
	default:
		merged = make(map[string]interface{})
		for _, f := range fields {
			for k, v := range f {
				merged[k] = v
			}
		}
	}
	cl.logger.log(level, cl.component, message, merged)
}

var (
	globalMu     sync.RWMutex
	globalLogger = New(DefaultConfig())
)

// SetGlobalLogger replaces the process-wide logger.
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// GetGlobalLogger returns the process-wide logger.
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// WithComponent returns a component logger backed by the global logger.
func WithComponent(component Component) *ComponentLogger {
	return GetGlobalLogger().WithComponent(component)
}
