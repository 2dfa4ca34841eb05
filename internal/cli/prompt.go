package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// prompter reads answers from a command's input. One per command run so
// buffered input is not lost between questions.
type prompter struct {
	out io.Writer
	in  *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{out: cmd.OutOrStdout(), in: bufio.NewReader(cmd.InOrStdin())}
}

// confirm asks a yes/no question. --yes answers for the user. Anything
// but y or yes is a no.
func (p *prompter) confirm(question string) (bool, error) {
	if flagYes {
		return true, nil
	}
	answer, err := p.ask(question + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ask prints prompt and reads one trimmed line. End of input without a
// newline yields what was read.
func (p *prompter) ask(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
