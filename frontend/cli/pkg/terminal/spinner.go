package terminal

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var dotFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

type Spinner struct {
	frames   []string
	interval time.Duration
	message  string
	writer   io.Writer
	active   bool
	mu       sync.Mutex
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewSpinner(writer io.Writer, message string) *Spinner {
	return &Spinner{
		frames:   dotFrames,
		interval: 120 * time.Millisecond,
		message:  message,
		writer:   writer,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (s *Spinner) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.mu.Unlock()

	go s.spin()
}

func (s *Spinner) Stop(completionMessage string) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	fmt.Fprintf(s.writer, "\r\033[K")
	if completionMessage != "" {
		fmt.Fprintf(s.writer, "%s\n", completionMessage)
	}
}

func (s *Spinner) spin() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	frameIndex := 0
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			frame := s.frames[frameIndex]
			message := s.message
			s.mu.Unlock()

			fmt.Fprintf(s.writer, "\r%s %s", frame, message)
			frameIndex = (frameIndex + 1) % len(s.frames)
		}
	}
}

type SpinnerOptions struct {
	SuccessMsg string
	ErrorMsg   string
	Animate    bool
}

type SpinnerOption func(*SpinnerOptions)

func WithSuccessMsg(msg string) SpinnerOption {
	return func(o *SpinnerOptions) {
		o.SuccessMsg = msg
	}
}

func WithErrorMsg(msg string) SpinnerOption {
	return func(o *SpinnerOptions) {
		o.ErrorMsg = msg
	}
}

// WithAnimation turns the spinner on or off. Without animation only the
// wrapped function runs, which keeps piped output free of control sequences.
func WithAnimation(animate bool) SpinnerOption {
	return func(o *SpinnerOptions) {
		o.Animate = animate
	}
}

func SpinnerFunc[T any](writer io.Writer, message string, fn func() (T, error), options ...SpinnerOption) (T, error) {
	opts := &SpinnerOptions{
		SuccessMsg: message,
		ErrorMsg:   message,
		Animate:    true,
	}
	for _, option := range options {
		option(opts)
	}

	if !opts.Animate {
		return fn()
	}

	spinner := NewSpinner(writer, message)
	spinner.Start()

	result, err := fn()
	if err != nil {
		spinner.Stop(fmt.Sprintf("%s %s", SmallErrorSymbol, opts.ErrorMsg))
	} else {
		spinner.Stop(fmt.Sprintf("%s %s", SuccessSymbol, opts.SuccessMsg))
	}

	return result, err
}
