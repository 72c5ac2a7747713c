package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// NonBlockingReader provides context-aware input reading that can be interrupted.
type NonBlockingReader struct {
	reader      *bufio.Reader
	readingLock sync.Mutex
}

// NewNonBlockingReader creates a new non-blocking reader.
func NewNonBlockingReader(reader io.Reader) *NonBlockingReader {
	if reader == nil {
		panic("reader cannot be nil")
	}

	return &NonBlockingReader{
		reader: bufio.NewReader(reader),
	}
}

// ReadString reads a string until delimiter, respecting context cancellation.
func (r *NonBlockingReader) ReadString(ctx context.Context, delim byte) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		r.readingLock.Lock()
		defer r.readingLock.Unlock()

		value, err := r.reader.ReadString(delim)
		resultCh <- result{value: value, err: err}
	}()

	// The reading goroutine outlives a canceled read until input arrives.
	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		return res.value, res.err
	}
}

// ReadLine reads a line, respecting context cancellation.
// A final line without a trailing newline is returned without error.
func (r *NonBlockingReader) ReadLine(ctx context.Context) (string, error) {
	line, err := r.ReadString(ctx, '\n')
	if errors.Is(err, io.EOF) && line != "" {
		return strings.TrimSpace(line), nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question and reports whether the answer was yes.
// Anything other than y or yes counts as no; so does end of input.
func Confirm(ctx context.Context, reader *NonBlockingReader, writer io.Writer, question string) (bool, error) {
	if _, err := fmt.Fprintf(writer, "%s[y/N] ", FormatPrompt(question)); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}

	answer, err := reader.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
