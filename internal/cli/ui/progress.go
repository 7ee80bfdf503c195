package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a message while a long operation, such as loading
// packages, runs.
type Spinner struct {
	writer   io.Writer
	message  string
	interval time.Duration
	noColor  bool

	start sync.Once
	stop  sync.Once
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewSpinner creates a spinner that redraws every interval, 100ms if zero.
func NewSpinner(w io.Writer, message string, interval time.Duration, noColor bool) *Spinner {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Spinner{
		writer:   w,
		message:  message,
		interval: interval,
		noColor:  noColor,
		done:     make(chan struct{}),
	}
}

// Start begins the animation. Calling it more than once has no effect.
func (s *Spinner) Start() {
	s.start.Do(func() {
		s.wg.Add(1)
		go s.animate()
	})
}

// Stop ends the animation and clears the line. It is safe to call more
// than once.
func (s *Spinner) Stop() {
	s.stop.Do(func() {
		close(s.done)
		s.wg.Wait()
		fmt.Fprint(s.writer, "\r\033[K")
	})
}

func (s *Spinner) animate() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	cyan := newColor(s.noColor, color.FgCyan)
	for i := 0; ; i = (i + 1) % len(spinnerFrames) {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			cyan.Fprintf(s.writer, "\r%s %s", spinnerFrames[i], s.message)
		}
	}
}

// WithSpinner runs fn while a spinner shows message. When show is false fn
// runs without any output.
func WithSpinner(w io.Writer, message string, show, noColor bool, fn func() error) error {
	if !show {
		return fn()
	}
	s := NewSpinner(w, message, 0, noColor)
	s.Start()
	defer s.Stop()
	return fn()
}
