package console

import (
	"io"

	"github.com/berfenger/zwconsole/internal/config"

	"github.com/chzyer/readline"
)

// NewReadline creates the interactive line reader used by Run.
func NewReadline(cfg config.ConsoleConfig, stdin io.ReadCloser, stdout io.Writer) (*readline.Instance, error) {
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = "> "
	}
	return readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           stdin,
		Stdout:          stdout,
	})
}
