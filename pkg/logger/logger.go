// OpenSpore - Autonomous personal AI agent
// License: MIT
//
// Copyright (c) 2026 OpenSpore contributors

package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "?"
	}
}

var (
	mu       sync.Mutex
	minLevel = LevelInfo
	out      io.Writer = os.Stderr
	fileSink *os.File
)

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	mu.Lock()
	minLevel = l
	mu.Unlock()
}

// SetVerbose is a convenience switch for debug output.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(LevelDebug)
	} else {
		SetLevel(LevelInfo)
	}
}

// SetLogFile mirrors all log lines to a file in addition to stderr.
func SetLogFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	mu.Lock()
	if fileSink != nil {
		fileSink.Close()
	}
	fileSink = f
	mu.Unlock()
	return nil
}

func logLine(level Level, component, msg string, fields map[string]interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if level < minLevel {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, " [%s] [%s] %s", level, component, msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	b.WriteString("\n")

	line := b.String()
	io.WriteString(out, line)
	if fileSink != nil {
		io.WriteString(fileSink, line)
	}
}

func DebugC(component, msg string)                                 { logLine(LevelDebug, component, msg, nil) }
func InfoC(component, msg string)                                  { logLine(LevelInfo, component, msg, nil) }
func WarnC(component, msg string)                                  { logLine(LevelWarn, component, msg, nil) }
func ErrorC(component, msg string)                                 { logLine(LevelError, component, msg, nil) }
func DebugCF(component, msg string, fields map[string]interface{}) { logLine(LevelDebug, component, msg, fields) }
func InfoCF(component, msg string, fields map[string]interface{})  { logLine(LevelInfo, component, msg, fields) }
func WarnCF(component, msg string, fields map[string]interface{})  { logLine(LevelWarn, component, msg, fields) }
func ErrorCF(component, msg string, fields map[string]interface{}) { logLine(LevelError, component, msg, fields) }
