// Package mdrepl is an interactive line-edited console over mdforge.Format,
// grounded on pkg/parsley/repl/repl.go: a liner.State prompt loop with
// history file and tab completion, adapted from Parsley's
// keyword/builtin completion list to the block-start tokens that trigger
// this engine's recognizers.
package mdrepl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/sambeau/mdforge/pkg/mderr"
	"github.com/sambeau/mdforge/pkg/mdforge"
)

const prompt = ">> "
const continuationPrompt = ".. "

const logo = `
█▀▄▀█ █▀▄ █▀▀ █▀█ █▀█ █▀▀ █▀▀
█░▀░█ █▄▀ █▀░ █▄█ █▀▄ █▄█ ██▄ `

// completionWords lists the recognizer trigger tokens (SPEC_FULL.md D.4):
// the punctuation that starts each block-level production.
var completionWords = []string{
	"#", "##", "###", "####", "#####", "######",
	"-", "1.", ":", ":::", "```", ">", "Caption:", "|",
}

// Start runs the REPL until EOF (Ctrl+D) or "exit"/"quit".
func Start(in io.Reader, out io.Writer, version string) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(l string) []string {
		return filterCompletions(l)
	})

	historyFile := filepath.Join(os.TempDir(), ".mdforge_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprint(out, logo)
	fmt.Fprintln(out, "v", version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Use Tab for completion, ↑↓ for history")
	fmt.Fprintln(out, "Enter a blank line to render the buffered Markdown")
	fmt.Fprintln(out, "")

	var buf strings.Builder

	for {
		p := prompt
		if buf.Len() > 0 {
			p = continuationPrompt
		}

		input, err := line.Prompt(p)
		if err != nil {
			if err == liner.ErrPromptAborted {
				buf.Reset()
				fmt.Fprintln(out, "^C")
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if buf.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			fmt.Fprintln(out, "Goodbye!")
			return
		}

		if trimmed == "" {
			if buf.Len() == 0 {
				continue
			}
			source := buf.String()
			line.AppendHistory(source)
			renderAndPrint(out, source)
			buf.Reset()
			continue
		}

		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(input)
	}
}

func renderAndPrint(out io.Writer, source string) {
	html, err := mdforge.Format(source)
	if err != nil {
		if mdErr, ok := err.(*mderr.Error); ok {
			fmt.Fprintln(out, mdErr.Error())
		} else {
			fmt.Fprintln(out, err.Error())
		}
		return
	}
	io.WriteString(out, html)
}

func filterCompletions(input string) []string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || strings.HasSuffix(input, " ") {
		return nil
	}

	var matches []string
	for _, word := range completionWords {
		if strings.HasPrefix(word, trimmed) {
			matches = append(matches, word)
		}
	}
	return matches
}
