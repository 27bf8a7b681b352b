// Package msglog is the append-only outbound message log read by the
// downstream matching engine. One Append is one durable line.
package msglog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"order_gateway/internal/domain"
	"order_gateway/internal/infra"
)

// logFile is the subset of *os.File the writer needs.
type logFile interface {
	io.Writer
	Sync() error
	Truncate(size int64) error
	Close() error
}

// Options tunes the retry policy of a Writer.
type Options struct {
	MaxAttempts int           // Total attempts per append, at least 1
	RetryBase   time.Duration // First backoff delay
	Metrics     *infra.Metrics
}

// Writer appends order messages to the log file.
type Writer struct {
	mu       sync.Mutex
	path     string
	f        logFile
	offset   int64 // Size of the file after the last durable line
	poisoned bool

	maxAttempts int
	retryBase   time.Duration
	metrics     *infra.Metrics
	sleep       func(time.Duration)
}

var _ domain.MessageSink = (*Writer)(nil)

// Open opens (or creates) the log at path. A torn last line left by a crash
// is cut off before the first append.
func Open(path string, opts Options) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &domain.LogWriteError{Op: "open", Err: err}
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, &domain.LogWriteError{Op: "open", Err: err}
	}

	offset, err := recoverTail(f)
	if err != nil {
		f.Close()
		return nil, &domain.LogWriteError{Op: "open", Err: err}
	}

	w := newWriter(f, offset, opts)
	w.path = path
	return w, nil
}

func newWriter(f logFile, offset int64, opts Options) *Writer {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Metrics == nil {
		opts.Metrics = infra.GlobalMetrics
	}
	return &Writer{
		f:           f,
		offset:      offset,
		maxAttempts: opts.MaxAttempts,
		retryBase:   opts.RetryBase,
		metrics:     opts.Metrics,
		sleep:       time.Sleep,
	}
}

// recoverTail truncates everything after the last newline and returns the
// resulting size.
func recoverTail(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := info.Size()
	if size == 0 {
		return 0, nil
	}

	const chunk = 4096
	buf := make([]byte, chunk)
	end := size
	for end > 0 {
		start := end - chunk
		if start < 0 {
			start = 0
		}
		n, err := f.ReadAt(buf[:end-start], start)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if i := strings.LastIndexByte(string(buf[:n]), '\n'); i >= 0 {
			keep := start + int64(i) + 1
			if keep == size {
				return size, nil
			}
			return keep, truncateTorn(f, keep, size)
		}
		end = start
	}
	// No newline at all: the whole file is one torn line
	return 0, truncateTorn(f, 0, size)
}

func truncateTorn(f *os.File, keep, size int64) error {
	slog.Warn("Truncating torn message log tail",
		slog.Int64("size", size), slog.Int64("keep", keep))
	if err := f.Truncate(keep); err != nil {
		return err
	}
	return f.Sync()
}

// Append writes line plus a newline and syncs it to disk. A failed attempt
// is rolled back by truncating to the previous size, then retried with
// backoff up to MaxAttempts. When the rollback itself fails the writer is
// poisoned and refuses further appends.
func (w *Writer) Append(line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("%w: line contains a line break", domain.ErrMalformedMessage)
	}
	if len(line) >= maxScanLine {
		return fmt.Errorf("%w: line is %d bytes", domain.ErrMalformedMessage, len(line))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.poisoned {
		return &domain.LogWriteError{Op: "append", Err: domain.ErrLogPoisoned}
	}

	buf := []byte(line + "\n")
	var lastOp string
	var lastErr error

	for attempt := 0; attempt < w.maxAttempts; attempt++ {
		if attempt > 0 {
			w.metrics.RecordAppendRetry()
			w.sleep(infra.CalculateBackoff(w.retryBase, attempt-1))
		}

		op, err := w.writeOnce(buf)
		if err == nil {
			w.offset += int64(len(buf))
			w.metrics.RecordAppend()
			return nil
		}
		lastOp, lastErr = op, err

		slog.Warn("Message log append attempt failed",
			slog.String("op", op),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))

		if terr := w.f.Truncate(w.offset); terr != nil {
			w.poisoned = true
			w.metrics.SetLogPoisoned(true)
			slog.Error("Message log rollback failed, refusing further appends",
				slog.Int64("offset", w.offset), slog.Any("error", terr))
			return &domain.LogWriteError{Op: "truncate", Attempts: attempt + 1, Err: errors.Join(err, terr)}
		}
	}

	return &domain.LogWriteError{Op: lastOp, Attempts: w.maxAttempts, Err: lastErr, Retriable: true}
}

func (w *Writer) writeOnce(buf []byte) (string, error) {
	n, err := w.f.Write(buf)
	if err != nil {
		return "write", err
	}
	if n != len(buf) {
		return "write", io.ErrShortWrite
	}
	if err := w.f.Sync(); err != nil {
		return "sync", err
	}
	return "", nil
}

// Size returns the durable size of the log in bytes.
func (w *Writer) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.offset
}

// Close syncs and closes the log file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// LastClientOrderID returns the highest numeric client order id on any NEW
// line of the log, 0 when there is none. Lines that do not parse are skipped.
func (w *Writer) LastClientOrderID() (uint64, error) {
	if w.path == "" {
		return 0, nil
	}
	return ScanLastClientOrderID(w.path)
}

// ScanLastClientOrderID reads the log at path and returns the highest
// numeric id placed by a NEW line.
func ScanLastClientOrderID(path string) (uint64, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var last uint64
	var skipped int
	r := bufio.NewReaderSize(f, maxScanLine)
	for {
		line, tooLong, err := readLine(r)
		if tooLong {
			skipped++
		} else if line != "" {
			msg, perr := domain.ParseMessage(line)
			switch {
			case perr != nil:
				skipped++
			case msg.Action() == domain.ActionNew:
				if n, ok := msg.ClientOrderID().Seq(); ok && n > last {
					last = n
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if skipped > 0 {
		slog.Warn("Skipped unparsable message log lines", slog.Int("count", skipped))
	}
	return last, nil
}

// maxScanLine bounds a line including its newline. Append refuses longer
// lines, and ScanLastClientOrderID skips them.
const maxScanLine = 64 * 1024

// readLine returns the next line, or tooLong when it exceeds the reader's
// buffer. The overlong line is consumed either way.
func readLine(r *bufio.Reader) (line string, tooLong bool, err error) {
	b, err := r.ReadSlice('\n')
	if !errors.Is(err, bufio.ErrBufferFull) {
		return string(b), false, err
	}
	for errors.Is(err, bufio.ErrBufferFull) {
		_, err = r.ReadSlice('\n')
	}
	return "", true, err
}
