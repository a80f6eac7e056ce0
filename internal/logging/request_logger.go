package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// RequestLogger writes LogEntry values as JSON lines, asynchronously, with
// size-based rotation and periodic flush.
type RequestLogger struct {
	fileTemplate  string        // template for log file name e.g. "logs/requests-%s.jsonl"
	maxSize       int64         // maximum size in bytes before rotation
	maxFiles      int           // maximum number of rotated files to keep
	flushInterval time.Duration // flush the buffer every flushInterval if not empty

	mu          sync.Mutex
	currentFile string // current active file name (populated from fileTemplate)
	file        *os.File
	writer      *bufio.Writer
	currentSize int64

	logCh   chan LogEntry
	doneCh  chan struct{}
	wg      sync.WaitGroup
	closed  bool
	dropped int64
}

// newFileName generates a new log filename by applying the current timestamp
// to the fileTemplate. The timestamp format used is "20060102150405.000000".
func (logger *RequestLogger) newFileName() string {
	timestamp := time.Now().Format("20060102150405.000000")
	return fmt.Sprintf(logger.fileTemplate, timestamp)
}

// openFile opens (or creates) the active log file using the file template and prepares the buffered writer.
// It also ensures that the directory for the log file exists.
func (logger *RequestLogger) openFile() error {
	logger.currentFile = logger.newFileName()
	// Ensure the directory exists
	dir := filepath.Dir(logger.currentFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := os.OpenFile(logger.currentFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	logger.currentSize = fi.Size()
	logger.file = file
	logger.writer = bufio.NewWriter(file)
	return nil
}

// rotateIfNeeded checks if adding n bytes would exceed the max file size,
// and if so rotates the file by closing the current file and opening a new one.
func (logger *RequestLogger) rotateIfNeeded(n int) (bool, error) {
	logger.mu.Lock()
	defer logger.mu.Unlock()

	// an empty file always takes the entry, however large
	if logger.currentSize == 0 || logger.currentSize+int64(n) < logger.maxSize {
		return false, nil
	}

	if err := logger.writer.Flush(); err != nil {
		return false, err
	}
	if err := logger.file.Close(); err != nil {
		return false, err
	}

	// Open a new file (which will have a new timestamp)
	if err := logger.openFile(); err != nil {
		return false, err
	}
	return true, nil
}

// cleanupOldFiles removes the oldest rotated files if more than maxFiles exist.
func (logger *RequestLogger) cleanupOldFiles() error {
	if logger.maxFiles <= 0 {
		return nil
	}
	// Build the glob pattern by replacing "%s" with "*"
	pattern := fmt.Sprintf(logger.fileTemplate, "*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	// The timestamp in the name sorts oldest first
	sort.Strings(matches)

	// Delete oldest files if there are more than maxFiles.
	excess := len(matches) - logger.maxFiles
	for i := 0; i < excess; i++ {
		_ = os.Remove(matches[i])
	}
	return nil
}

// run is the goroutine that listens for log entries and writes them to disk.
// It also uses a ticker to periodically flush the buffer.
func (logger *RequestLogger) run() {
	defer logger.wg.Done()
	ticker := time.NewTicker(logger.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-logger.logCh:
			logger.writeEntry(entry)
		case <-ticker.C:
			// Flush periodically.
			logger.mu.Lock()
			_ = logger.writer.Flush()
			logger.mu.Unlock()
		case <-logger.doneCh:
			// Drain remaining log entries.
			for {
				select {
				case entry := <-logger.logCh:
					logger.writeEntry(entry)
				default:
					logger.mu.Lock()
					_ = logger.writer.Flush()
					_ = logger.file.Close()
					logger.mu.Unlock()
					return
				}
			}
		}
	}
}

// writeEntry serializes a LogEntry to JSON and writes it, rotating if needed.
func (logger *RequestLogger) writeEntry(entry LogEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	line := string(data) + "\n"
	n := len(line)

	rotated, err := logger.rotateIfNeeded(n)
	if err != nil {
		// keep writing to the current file
		rotated = false
	}
	logger.mu.Lock()
	_, _ = logger.writer.WriteString(line)
	logger.currentSize += int64(n)
	logger.mu.Unlock()

	if rotated {
		_ = logger.cleanupOldFiles()
	}
}

// Log queues an entry for writing. If the queue is full, or the logger is
// shut down, the entry is dropped.
func (logger *RequestLogger) Log(entry *LogEntry) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if logger.closed {
		logger.dropped++
		return
	}

	select {
	case logger.logCh <- *entry:
	default:
		logger.dropped++
	}
}

// Dropped returns how many entries were discarded
func (logger *RequestLogger) Dropped() int64 {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	return logger.dropped
}

// CurrentFile returns the path of the active log file
func (logger *RequestLogger) CurrentFile() string {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	return logger.currentFile
}

// Shutdown signals the logger to flush its buffer and close the file.
// Call Shutdown() from your application's graceful shutdown handler.
func (logger *RequestLogger) Shutdown() {
	logger.mu.Lock()
	if logger.closed {
		logger.mu.Unlock()
		return
	}
	logger.closed = true
	logger.mu.Unlock()

	close(logger.doneCh)
	logger.wg.Wait()
}

// NewLogger creates a new RequestLogger.
// bufferSize determines how many log entries can be queued; Log drops and
// counts entries once it is full.
// flushInterval defines how often the logger should flush its buffer.
func NewLogger(fileTemplate string, maxSize int64, maxFiles, bufferSize int, flushInterval time.Duration) (*RequestLogger, error) {
	if bufferSize < 0 {
		return nil, fmt.Errorf("buffer size must not be negative, got %d", bufferSize)
	}
	if flushInterval <= 0 {
		return nil, fmt.Errorf("flush interval must be positive, got %s", flushInterval)
	}

	logger := &RequestLogger{
		fileTemplate:  fileTemplate,
		maxSize:       maxSize,
		maxFiles:      maxFiles,
		flushInterval: flushInterval,
		logCh:         make(chan LogEntry, bufferSize),
		doneCh:        make(chan struct{}),
	}

	if err := logger.openFile(); err != nil {
		return nil, err
	}

	logger.wg.Add(1)
	go logger.run()

	return logger, nil
}
