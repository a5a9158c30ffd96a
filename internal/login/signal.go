package login

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"vaaniagent/internal/config"
)

// Signal is the external event that ends the wait for an out-of-band login.
type Signal interface {
	// Wait blocks until the signal fires or ctx is done.
	Wait(ctx context.Context) error
}

// ChanSignal is fired programmatically.
type ChanSignal chan struct{}

// NewChanSignal returns a ChanSignal that remembers one pending Fire.
func NewChanSignal() ChanSignal {
	return make(ChanSignal, 1)
}

// Fire releases one waiter. Extra calls while a fire is pending are dropped.
func (c ChanSignal) Fire() {
	select {
	case c <- struct{}{}:
	default:
	}
}

// Wait implements Signal.
func (c ChanSignal) Wait(ctx context.Context) error {
	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConsoleSignal fires when the operator presses Enter. A single reader
// goroutine owns the input for the lifetime of the signal, so a cancelled
// Wait never swallows the line meant for the next one.
type ConsoleSignal struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan struct{}
	err   error // set before lines is closed
}

// NewConsoleSignal reads confirmations from in and writes the prompt to out.
// out may be nil.
func NewConsoleSignal(in io.Reader, out io.Writer) *ConsoleSignal {
	return &ConsoleSignal{
		in:    in,
		out:   out,
		lines: make(chan struct{}),
	}
}

func (s *ConsoleSignal) readLines() {
	r := bufio.NewReader(s.in)
	for {
		if _, err := r.ReadString('\n'); err != nil {
			s.err = err
			close(s.lines)
			return
		}
		s.lines <- struct{}{}
	}
}

// Wait implements Signal. A closed input is reported as an error so that a
// detached process does not mistake EOF for a confirmation.
func (s *ConsoleSignal) Wait(ctx context.Context) error {
	s.once.Do(func() { go s.readLines() })

	if s.out != nil {
		fmt.Fprintln(s.out, "Complete the login in your browser, then press Enter to continue...")
	}

	select {
	case _, ok := <-s.lines:
		if !ok {
			return fmt.Errorf("console closed before confirmation: %w", s.err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FileSignal fires once the token file holds a readable, non-empty token.
// Change events that leave the file empty or half-written are skipped.
type FileSignal struct {
	path  string
	store TokenLoader
}

// NewFileSignal watches path and checks each change through store.
func NewFileSignal(path string, store TokenLoader) *FileSignal {
	return &FileSignal{path: path, store: store}
}

// Wait implements Signal. The parent directory is created when missing so that
// a first login on a fresh machine can still be observed.
func (s *FileSignal) Wait(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	ready := make(chan struct{}, 1)
	fw, err := config.NewFileWatcher(s.path, func() {
		if token, err := s.store.Load(); err != nil || token == "" {
			return
		}
		select {
		case ready <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create token watcher: %w", err)
	}
	defer fw.Stop()

	if err := fw.Start(); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.path, err)
	}

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Any returns a Signal that fires on the first of signals to fire. Signals that
// fail are ignored unless all of them fail, in which case the last error is
// returned.
func Any(signals ...Signal) Signal {
	return anySignal(signals)
}

type anySignal []Signal

func (a anySignal) Wait(ctx context.Context) error {
	if len(a) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan error, len(a))
	for _, s := range a {
		go func(s Signal) {
			results <- s.Wait(ctx)
		}(s)
	}

	var lastErr error
	for range a {
		err := <-results
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}
	return lastErr
}
