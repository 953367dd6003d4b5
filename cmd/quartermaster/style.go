package main

import (
	"encoding/json"
	"fmt"
	"os"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	blue   = color.New(color.FgBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 100
	}
	if width > 120 {
		width = 120
	}
	return width
}

// renderMarkdown formats a markdown document for the terminal.
func renderMarkdown(source string) string {
	return string(markdown.Render(source, terminalWidth(), 0))
}

// printJSON writes v as indented JSON to stdout, for --json scripting.
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// printMarkdown renders and prints a markdown document.
func printMarkdown(source string) {
	fmt.Print(renderMarkdown(source))
}
