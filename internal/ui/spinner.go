package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// SimpleSpinner draws a one-line spinner on stdout for blocking CLI steps
// such as candidate gathering.
type SimpleSpinner struct {
	mu       sync.Mutex
	message  string
	spinner  spinner.Spinner
	interval time.Duration
	done     chan struct{}
	once     sync.Once
}

// NewSimpleSpinner creates a Dot spinner for general work.
func NewSimpleSpinner(message string) *SimpleSpinner {
	return &SimpleSpinner{
		message:  message,
		spinner:  spinner.Dot,
		interval: 80 * time.Millisecond,
		done:     make(chan struct{}),
	}
}

// NewConnectionSpinner creates a Globe spinner for network steps.
func NewConnectionSpinner(message string) *SimpleSpinner {
	return &SimpleSpinner{
		message:  message,
		spinner:  spinner.Globe,
		interval: 180 * time.Millisecond,
		done:     make(chan struct{}),
	}
}

func (s *SimpleSpinner) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		frames := s.spinner.Frames
		for i := 0; ; i++ {
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()
			fmt.Printf("\r%s %s", SpinnerStyle.Render(frames[i%len(frames)]), msg)

			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *SimpleSpinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		fmt.Print("\r\033[K")
	})
}

func (s *SimpleSpinner) Success(message string) {
	s.Stop()
	fmt.Printf("%s %s\n", SuccessStyle.Render(IconSuccess), message)
}

func (s *SimpleSpinner) Error(message string) {
	s.Stop()
	fmt.Printf("%s %s\n", ErrorStyle.Render(IconError), message)
}

// RunConnectionSpinner starts a connection spinner and returns its stop function.
func RunConnectionSpinner(message string) func() {
	sp := NewConnectionSpinner(message)
	sp.Start()
	return sp.Stop
}
