// Package credsource provides the interactive and stored secret sources
// consumed by credential resolution.
package credsource

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// TerminalPrompter implements [domain.SecretPrompter] against the
// controlling terminal. Typed characters are not echoed and no trace of
// the secret is left on the line.
type TerminalPrompter struct{}

func (TerminalPrompter) ReadSecret(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read from terminal: %w", err)
	}
	return secret, nil
}
