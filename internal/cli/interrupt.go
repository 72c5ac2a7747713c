package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler cancels long-running commands on SIGINT/SIGTERM and tells
// the user what state they were left in.
type InterruptHandler struct {
	writer      io.Writer
	cancelFunc  context.CancelFunc
	interrupted bool
	resumeHint  string
	mu          sync.Mutex
}

// NewInterruptHandler creates a new interrupt handler.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{
		writer: writer,
	}
}

// HandleInterrupts returns a context that is canceled on interrupt. When
// resumeHint is set it is shown as the command to finish the job.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context, resumeHint string) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	h.cancelFunc = cancel
	h.resumeHint = resumeHint

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			h.interrupt()
		case <-ctx.Done():
		}
	}()

	return ctx
}

func (h *InterruptHandler) interrupt() {
	h.mu.Lock()
	if !h.interrupted {
		h.interrupted = true
		h.showInterruptMessage()
	}
	h.mu.Unlock()
	if h.cancelFunc != nil {
		h.cancelFunc()
	}
}

func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n\n" + FormatWarning("Interrupted!")
	msg += "\n" + FormatInfo("Accounts finished so far are fully reconciled; the one in flight was rolled back.")

	if h.resumeHint != "" {
		msg += "\n" + FormatInfo("Finish with: "+h.resumeHint)
	}
	msg += "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted returns true if the process was interrupted.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
