package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter reads answers for one command invocation. A terminal is read
// with echo off; anything else is read line by line through a single
// buffered reader so consecutive prompts see consecutive lines.
type prompter struct {
	in    io.Reader
	lines *bufio.Reader
}

func newPrompter(in io.Reader) *prompter {
	return &prompter{in: in}
}

// input is the prompter of the running command, set up in the root
// command's pre-run.
var input *prompter

func (p *prompter) terminalFD() (int, bool) {
	f, ok := p.in.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// secret prompts on w and reads one answer without echo when possible.
func (p *prompter) secret(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt+": ")
	if fd, ok := p.terminalFD(); ok {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(w)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", strings.ToLower(prompt), err)
		}
		return string(b), nil
	}

	if p.lines == nil {
		p.lines = bufio.NewReader(p.in)
	}
	line, err := p.lines.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readSecret returns flagValue, or prompts for it when it is empty.
func readSecret(cmd *cobra.Command, flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if input == nil {
		input = newPrompter(cmd.InOrStdin())
	}
	return input.secret(cmd.ErrOrStderr(), prompt)
}
