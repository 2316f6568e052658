package common

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func IsInteractiveTerminal(command *cobra.Command) bool {
	in, ok := command.InOrStdin().(*os.File)
	if !ok || in == nil {
		return false
	}
	return term.IsTerminal(int(in.Fd()))
}

// PromptPassword reads a password without echo from the command's terminal.
func PromptPassword(command *cobra.Command, prompt string) (string, error) {
	in, ok := command.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(in.Fd())) {
		return "", ValidationError("interactive terminal is required to prompt for a password", nil)
	}

	_, _ = fmt.Fprint(command.ErrOrStderr(), prompt)
	secret, err := term.ReadPassword(int(in.Fd()))
	_, _ = fmt.Fprintln(command.ErrOrStderr())
	if err != nil {
		return "", err
	}
	return string(secret), nil
}
