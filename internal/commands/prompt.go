package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// errNoInput is returned when stdin ends before an answer.
	errNoInput = errors.New("no input")

	// errDeclined is reported when a confirmation is refused.
	errDeclined = errors.New("cancelled")
)

// prompter reads answers line by line from one reader. A single prompter
// must be used per invocation so buffered input is not lost between
// questions.
type prompter struct {
	in     *bufio.Reader
	errOut io.Writer
}

func newPrompter(env *Env) *prompter {
	return &prompter{in: bufio.NewReader(env.In), errOut: env.ErrOut}
}

// ask prints label to stderr and returns the next line without its
// line ending.
func (p *prompter) ask(label string) (string, error) {
	fmt.Fprint(p.errOut, label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errNoInput
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks a yes/no question. Anything but y or yes is no.
func (p *prompter) confirm(question string) bool {
	answer, err := p.ask(question + " [y/N]: ")
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
