package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PromptSecret reads a secret from stdin with echo disabled. When stdin is not
// a terminal (piped input, login hooks) it falls back to a plain line read so
// the tools stay scriptable.
func PromptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readSecretLine(os.Stdin)
	}

	fmt.Fprint(os.Stderr, prompt)
	secretBytes, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return string(secretBytes), nil
}

// readSecretLine reads one line and strips the trailing newline (common with
// echo/printf pipelines).
func readSecretLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("empty secret")
	}
	return line, nil
}
