// Package cli renders operator-facing output for the randomness CLI.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// Printer writes status lines, coloured when the writer is a terminal.
type Printer struct {
	w        io.Writer
	colorize bool
}

// NewPrinter returns a printer for stdout.
func NewPrinter() *Printer {
	return &Printer{w: os.Stdout, colorize: isTerminal(os.Stdout)}
}

// NewPlainPrinter returns a printer that never colours its output.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) line(color, mark, message string) {
	if p.colorize {
		fmt.Fprintf(p.w, "%s%s%s %s\n", color, mark, ColorReset, message)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", mark, message)
}

// Success prints a success message.
func (p *Printer) Success(message string) { p.line(ColorGreen, "✓", message) }

// Error prints an error message.
func (p *Printer) Error(message string) { p.line(ColorRed, "✗", message) }

// Warning prints a warning message.
func (p *Printer) Warning(message string) { p.line(ColorYellow, "!", message) }

// Field prints an aligned key/value pair.
func (p *Printer) Field(key, value string) {
	fmt.Fprintf(p.w, "  %-10s %s\n", key+":", value)
}

// Spinner shows that the CLI is waiting on the chain.
type Spinner struct {
	frames  []string
	current int
	prefix  string
	printer *Printer
	start   time.Time

	mu     sync.Mutex
	active bool
	done   chan struct{}
}

// NewSpinner creates a spinner labelled prefix.
func (p *Printer) NewSpinner(prefix string) *Spinner {
	return &Spinner{
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		prefix:  prefix,
		printer: p,
	}
}

// Start animates the spinner until Stop. Non-terminal writers get no animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.start = time.Now()
	s.done = make(chan struct{})
	if !s.printer.colorize {
		return
	}

	done := s.done
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.current = (s.current + 1) % len(s.frames)
				s.mu.Unlock()
			case <-done:
				return
			}
		}
	}()
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	close(s.done)
	if s.printer.colorize {
		fmt.Fprint(s.printer.w, "\r"+strings.Repeat(" ", 80)+"\r")
	}
}

// Success stops the spinner and prints message with the elapsed time.
func (s *Spinner) Success(message string) {
	s.Stop()
	s.printer.Success(fmt.Sprintf("%s (%s)", message, FormatDuration(time.Since(s.start))))
}

// Error stops the spinner and prints message.
func (s *Spinner) Error(message string) {
	s.Stop()
	s.printer.Error(message)
}

func (s *Spinner) render() {
	frame := ColorCyan + s.frames[s.current] + ColorReset
	fmt.Fprintf(s.printer.w, "\r%s %s %s", frame, s.prefix, FormatDuration(time.Since(s.start)))
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// FormatDuration formats a wait time for display.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
