package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// codeProvider supplies the one-time MFA code sent to the user.
type codeProvider interface {
	mfaCode() (string, error)
}

// consoleCodeProvider asks for the code on the terminal and blocks until a
// line is entered.
type consoleCodeProvider struct {
	reader   *bufio.Reader
	reporter *reporter
}

func newConsoleCodeProvider(in io.Reader, r *reporter) *consoleCodeProvider {
	return &consoleCodeProvider{
		reader:   bufio.NewReader(in),
		reporter: r,
	}
}

func (c *consoleCodeProvider) mfaCode() (string, error) {
	c.reporter.prompt("✉️", "Enter MFA code from SMS: ")
	val, err := c.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && val != "") {
		return "", fmt.Errorf("unable to scan input: %w", err)
	}
	return strings.TrimSpace(val), nil
}

var errNoPassword = errors.New("KRONOS_PASSWORD is not set and stdin is not a terminal")

// promptPassword reads the portal password without echo. It only works when
// in is a terminal; otherwise KRONOS_PASSWORD has to be set.
func promptPassword(in io.Reader, out io.Writer) (string, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "", errNoPassword
	}
	fd := int(f.Fd())
	fmt.Fprint(out, "🔑 Kronos password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("unable to read password: %w", err)
	}
	return string(b), nil
}
