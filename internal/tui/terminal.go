package tui

import (
	"io"

	"golang.org/x/term"
)

type fdHolder interface {
	Fd() uintptr
}

var (
	isTerminalFunc = term.IsTerminal
	getSizeFunc    = term.GetSize
)

// SetIsTerminalFuncForTesting overrides terminal detection and returns a restore function.
func SetIsTerminalFuncForTesting(fn func(int) bool) func() {
	previous := isTerminalFunc
	isTerminalFunc = fn
	return func() {
		isTerminalFunc = previous
	}
}

// ShouldPrompt reports whether interactive prompts can be shown.
func ShouldPrompt(quiet bool, in io.Reader, out io.Writer) bool {
	if quiet {
		return false
	}
	return IsTerminalReader(in) && IsTerminalWriter(out)
}

func IsTerminalReader(reader io.Reader) bool {
	if holder, ok := reader.(fdHolder); ok {
		return isTerminalFunc(int(holder.Fd()))
	}
	return false
}

func IsTerminalWriter(writer io.Writer) bool {
	if holder, ok := writer.(fdHolder); ok {
		return isTerminalFunc(int(holder.Fd()))
	}
	return false
}

// Width returns the terminal width of out, or fallback when out is not a terminal.
func Width(out io.Writer, fallback int) int {
	holder, ok := out.(fdHolder)
	if !ok || !isTerminalFunc(int(holder.Fd())) {
		return fallback
	}
	width, _, err := getSizeFunc(int(holder.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
