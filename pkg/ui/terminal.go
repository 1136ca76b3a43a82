package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// ASCII logo for the application
const ASCIILogo = `
    ┌─────────────────────────────────────────────────────┐
    │  ┌─┐┬ ┬┌─┐┌┬┐┌─┐┌─┐┌─┐┌┬┐┌─┐┬ ┬                      │
    │  ├─┘├─┤│ │ │ │ │├┤ ├┤  │ │  ├─┤                      │
    │  ┴  ┴ ┴└─┘ ┴ └─┘└  └─┘ ┴ └─┘┴ ┴                      │
    │        resumable product image downloader           │
    └─────────────────────────────────────────────────────┘
`

var (
	mu      sync.Mutex
	out     io.Writer = os.Stdout
	quiet   bool
	noColor = !isTerminal(os.Stdout)
)

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if ColorDisabled() {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// SetOutput redirects all terminal output; nil restores stdout. Colors are
// left as configured.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	out = w
}

// SetQuietMode suppresses everything except errors
func SetQuietMode(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// IsQuietMode reports whether quiet mode is on
func IsQuietMode() bool {
	mu.Lock()
	defer mu.Unlock()
	return quiet
}

// SetNoColor disables ANSI colors
func SetNoColor(disabled bool) {
	mu.Lock()
	defer mu.Unlock()
	noColor = disabled
}

// ColorDisabled reports whether ANSI colors are off
func ColorDisabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return noColor
}

func printf(force bool, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if quiet && !force {
		return
	}
	fmt.Fprintf(out, format, args...)
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	printf(false, "%s", Cyan(ASCIILogo))
}

// PrintError prints an error message in red. Errors are shown in quiet mode.
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	printf(true, "%s\n", Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	printf(false, "%s\n", Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	printf(false, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	printf(false, "%s\n", Yellow(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	printf(false, "%s\n", Magenta(msg))
}
