package logger

import (
	"bytes"
	"fmt"
	"os"
	"time"
)

// --- Constants for log levels ---
const (
	FLAG_TRACE = 5
	FLAG_DEBUG = 4
	FLAG_INFO  = 3
	FLAG_WARN  = 2
	FLAG_ERROR = 1
)

// --- ANSI color codes ---
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
)

type LoggerConfig struct {
	Flag       int
	Identifier string
	Outputs    []*os.File
}

var config = &LoggerConfig{
	Flag:    FLAG_INFO,
	Outputs: []*os.File{os.Stdout},
}

// --- Configuration ---
func SetConfig(newConfig *LoggerConfig) {
	if len(newConfig.Outputs) == 0 {
		newConfig.Outputs = []*os.File{os.Stdout}
	}
	*config = *newConfig
}
func SetFlag(flag int)                { config.Flag = flag }
func SetIdentifier(identifier string) { config.Identifier = identifier }
func SetOutputs(outputs []*os.File)   { config.Outputs = outputs }

// --- Public Log API ---
func Trace(msg interface{}, a ...interface{}) { write(FLAG_TRACE, Blue, "TRACE", msg, a...) }
func Debug(msg interface{}, a ...interface{}) { write(FLAG_DEBUG, Cyan, "DEBUG", msg, a...) }
func Info(msg interface{}, a ...interface{})  { write(FLAG_INFO, Green, "INFO", msg, a...) }
func Warn(msg interface{}, a ...interface{})  { write(FLAG_WARN, Yellow, "WARN", msg, a...) }

func Error(msg interface{}, a ...interface{}) {
	if config.Flag < FLAG_ERROR {
		return
	}
	os.Stderr.Write(formatLog(Red, "ERROR", msg, a...))
}

// --- Internal logging logic ---
func write(level int, color, prefix string, msg interface{}, a ...interface{}) {
	if config.Flag < level {
		return
	}
	buffer := formatLog(color, prefix, msg, a...)
	for _, out := range config.Outputs {
		if out != nil {
			out.Write(buffer)
		}
	}
}

func formatLog(color, prefix string, msg interface{}, a ...interface{}) []byte {
	var buffer bytes.Buffer
	buffer.WriteString(color)
	fmt.Fprintf(&buffer, "[%s] %s ", prefix, time.Now().Format("15:04:05.000"))
	buffer.WriteString(Reset)
	if config.Identifier != "" {
		fmt.Fprintf(&buffer, "[%s] ", config.Identifier)
	}

	if str, ok := msg.(string); ok && len(a) > 0 {
		fmt.Fprintf(&buffer, str, a...)
	} else {
		fmt.Fprint(&buffer, msg)
		for _, item := range a {
			fmt.Fprintf(&buffer, " %v", item)
		}
	}
	buffer.WriteString("\n")
	return buffer.Bytes()
}
