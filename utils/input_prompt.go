package utils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/meysamhadeli/verilite/constants/lipgloss"
)

// ConfirmPrompt asks a yes/no question and reports whether the answer was yes.
// An empty answer or end of input counts as no.
func ConfirmPrompt(reader *bufio.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprint(out, lipgloss.BlueSky.Render(question+" (y/N): "))

	answer, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("error reading input: %w", err)
	}

	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes", nil
}

// ConfirmPromptWithContext is ConfirmPrompt that gives up when ctx is cancelled.
func ConfirmPromptWithContext(ctx context.Context, reader *bufio.Reader, out io.Writer, question string) (bool, error) {
	type answer struct {
		yes bool
		err error
	}
	answerChan := make(chan answer, 1)

	go func() {
		yes, err := ConfirmPrompt(reader, out, question)
		answerChan <- answer{yes: yes, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-answerChan:
		return a.yes, a.err
	}
}
