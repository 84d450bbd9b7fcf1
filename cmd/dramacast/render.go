package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	tag := statusKindLabel(kind)
	if colorize {
		tag = statusKindColor(kind) + tag + ansiReset
	}
	padded := label
	if len(padded) < statusLabelWidth {
		padded += strings.Repeat(" ", statusLabelWidth-len(padded))
	}
	if message == "" {
		return fmt.Sprintf("%s%s %s", statusIndent, padded, tag)
	}
	return fmt.Sprintf("%s%s %s %s", statusIndent, padded, tag, message)
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "[ OK ]"
	case statusWarn:
		return "[WARN]"
	case statusError:
		return "[FAIL]"
	default:
		return "[INFO]"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// clip shortens a cell value so wide titles and URLs do not blow up the table.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func formatDurationMs(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
