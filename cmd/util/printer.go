package util

import (
	"fmt"
	"github.com/fatih/color"
	"io"
	"os"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	faint  = color.New(color.Faint)
)

// Success prints a message in green to stdout
func Success(format string, a ...any) {
	_, _ = green.Printf("✓ "+format+"\n", a...)
}

// Warning prints a message in yellow to stderr
func Warning(format string, a ...any) {
	_, _ = yellow.Fprintf(os.Stderr, "! "+format+"\n", a...)
}

// Banner prints a prominent message in bold red to stderr
func Banner(format string, a ...any) {
	_, _ = red.Fprintf(os.Stderr, format+"\n", a...)
}

// Detail prints a dimmed key/value line to w
func Detail(w io.Writer, name string, value any) {
	_, _ = faint.Fprintf(w, "  %-10s ", name+":")
	_, _ = fmt.Fprintln(w, value)
}
