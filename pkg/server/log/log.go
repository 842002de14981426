/* Copyright 2025 GymFlow Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package log provides interfaces to write structured logs
package log

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
)

const (
	fieldKeyLevel         = "level"
	fieldKeyMessage       = "msg"
	fieldKeyTimestamp     = "ts"
	fieldKeyUnixTimestamp = "ts_unix"

	// LevelDebug represents debug log level
	LevelDebug = "debug"
	// LevelInfo represents info log level
	LevelInfo = "info"
	// LevelWarn represents warn log level
	LevelWarn = "warn"
	// LevelError represents error log level
	LevelError = "error"

	// FormatJSON emits one JSON object per log entry
	FormatJSON = "json"
	// FormatText emits human-readable, colorized entries for local development
	FormatText = "text"
)

var (
	// currentLevel is the currently configured log level
	currentLevel = LevelInfo
	// currentFormat is the currently configured output format
	currentFormat = FormatJSON
)

var levelColors = map[string]*color.Color{
	LevelDebug: color.New(color.FgHiBlack),
	LevelInfo:  color.New(color.FgCyan),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed),
}

// Fields represents a set of information to be included in the log
type Fields map[string]interface{}

// Entry represents a log entry
type Entry struct {
	Fields    Fields
	Timestamp time.Time
}

func newEntry(fields Fields) Entry {
	return Entry{
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}
}

// WithFields creates a log entry with the given fields
func WithFields(fields Fields) Entry {
	return newEntry(fields)
}

// SetLevel sets the global log level
func SetLevel(level string) {
	currentLevel = level
}

// SetFormat sets the global log output format
func SetFormat(format string) {
	if format == FormatText {
		currentFormat = FormatText
		return
	}

	currentFormat = FormatJSON
}

// levelPriority returns a numeric priority for comparison
func levelPriority(level string) int {
	switch level {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 1
	}
}

// shouldLog returns true if the given level should be logged based on currentLevel
func shouldLog(level string) bool {
	return levelPriority(level) >= levelPriority(currentLevel)
}

// Debug logs the given entry at a debug level
func (e Entry) Debug(msg string) {
	e.write(LevelDebug, msg)
}

// Info logs the given entry at an info level
func (e Entry) Info(msg string) {
	e.write(LevelInfo, msg)
}

// Warn logs the given entry at a warning level
func (e Entry) Warn(msg string) {
	e.write(LevelWarn, msg)
}

// Error logs the given entry at an error level
func (e Entry) Error(msg string) {
	e.write(LevelError, msg)
}

// ErrorWrap logs the given entry with the error message annotated by the given message
func (e Entry) ErrorWrap(err error, msg string) {
	m := fmt.Sprintf("%s: %v", msg, err)

	e.Error(m)
}

func (e Entry) formatJSON(level, msg string) []byte {
	data := make(Fields, len(e.Fields)+4)

	data[fieldKeyLevel] = level
	data[fieldKeyMessage] = msg
	data[fieldKeyTimestamp] = e.Timestamp
	data[fieldKeyUnixTimestamp] = e.Timestamp.Unix()

	for k, v := range e.Fields {
		switch v := v.(type) {
		case error:
			data[k] = v.Error()
		default:
			data[k] = v
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		return []byte(fmt.Sprintf(`{"level":"error","msg":"marshaling log entry: %v"}`, err))
	}

	return b
}

func (e Entry) formatText(level, msg string) []byte {
	c, ok := levelColors[level]
	if !ok {
		c = color.New()
	}

	var sb strings.Builder
	sb.WriteString(e.Timestamp.Format("15:04:05.000"))
	sb.WriteString(" ")
	sb.WriteString(c.Sprintf("%-5s", strings.ToUpper(level)))
	sb.WriteString(" ")
	sb.WriteString(msg)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		sb.WriteString(fmt.Sprintf(" %s=%v", k, e.Fields[k]))
	}

	return []byte(sb.String())
}

func (e Entry) write(level, msg string) {
	if !shouldLog(level) {
		return
	}

	var b []byte
	if currentFormat == FormatText {
		b = e.formatText(level, msg)
	} else {
		b = e.formatJSON(level, msg)
	}

	fmt.Fprintln(os.Stdout, string(b))
}

// Debug logs a message at a debug level
func Debug(msg string) {
	newEntry(nil).Debug(msg)
}

// Info logs a message at an info level
func Info(msg string) {
	newEntry(nil).Info(msg)
}

// Warn logs a message at a warn level
func Warn(msg string) {
	newEntry(nil).Warn(msg)
}

// Error logs a message at an error level
func Error(msg string) {
	newEntry(nil).Error(msg)
}

// ErrorWrap logs an error annotated by the given message
func ErrorWrap(err error, msg string) {
	newEntry(nil).ErrorWrap(err, msg)
}
