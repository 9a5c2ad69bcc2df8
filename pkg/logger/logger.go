package logger

import (
	"io"
	"log"
	"os"
	"sync"
)

var (
	InfoLog  *log.Logger
	ErrorLog *log.Logger
	WarnLog  *log.Logger
	DebugLog *log.Logger

	mu      sync.Mutex
	logFile *os.File
	level   = INFO
)

const (
	INFO = iota
	DEBUG
)

const flags = log.Ldate | log.Ltime

// InitLogger initializes the logger with console output and, when filename
// is not empty, a copy of every line appended to that file.
func InitLogger(filename string, lvl int) error {
	mu.Lock()
	defer mu.Unlock()

	closeFile()
	level = lvl

	if filename == "" {
		setWriters(os.Stdout, os.Stderr)
		return nil
	}

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		setWriters(os.Stdout, os.Stderr)
		return err
	}
	logFile = f
	setWriters(io.MultiWriter(os.Stdout, f), io.MultiWriter(os.Stderr, f))
	return nil
}

// SetOutput sends every level to w. Used by tests to capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	setWriters(w, w)
}

// SetLevel switches between INFO and DEBUG without touching the writers.
func SetLevel(lvl int) {
	mu.Lock()
	defer mu.Unlock()
	level = lvl
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeFile()
}

func closeFile() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func setWriters(out, errOut io.Writer) {
	InfoLog = log.New(out, "INFO: ", flags)
	WarnLog = log.New(out, "WARN: ", flags)
	DebugLog = log.New(out, "DEBUG: ", flags)
	ErrorLog = log.New(errOut, "ERROR: ", flags)
}

func Init() {
	mu.Lock()
	defer mu.Unlock()
	if InfoLog == nil {
		setWriters(os.Stdout, os.Stderr)
	}
}

func Info(format string, v ...interface{}) {
	Init()
	InfoLog.Printf(format, v...)
}

func Infof(format string, v ...interface{}) {
	Info(format, v...)
}

func Error(format string, v ...interface{}) {
	Init()
	ErrorLog.Printf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	Error(format, v...)
}

func Warn(format string, v ...interface{}) {
	Init()
	WarnLog.Printf(format, v...)
}

func Warnf(format string, v ...interface{}) {
	Warn(format, v...)
}

func Debugf(format string, v ...interface{}) {
	Init()
	mu.Lock()
	enabled := level == DEBUG
	mu.Unlock()
	if enabled {
		DebugLog.Printf(format, v...)
	}
}
