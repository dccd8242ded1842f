// Package prompt implements operator prompts for the purge command.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Terminal asks questions on an output stream and reads one line per answer.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// IsTerminal reports whether f is attached to a TTY.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// IsPiped reports whether f reads from a pipe or a regular file.
func IsPiped(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeNamedPipe != 0 || info.Mode().IsRegular()
}

func (t *Terminal) Confirm(ctx context.Context, header string, items []string) (string, error) {
	fmt.Fprintln(t.out, header)
	for _, item := range items {
		fmt.Fprintf(t.out, "  %s\n", item)
	}
	fmt.Fprint(t.out, "Proceed? [y/N] ")
	return t.readLine(ctx)
}

func (t *Terminal) Choose(ctx context.Context, items []string) (string, error) {
	width := len(fmt.Sprint(len(items)))
	for i, item := range items {
		fmt.Fprintf(t.out, "%*d) %s\n", width, i+1, item)
	}
	fmt.Fprint(t.out, "Archives to delete (numbers separated by spaces, or 'all'): ")
	return t.readLine(ctx)
}

// readLine returns one line without its terminator. End of input counts as
// an empty answer.
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := t.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(t.out)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Scripted answers prompts from a fixed list, for tests and --yes. Once the
// answers run out every prompt gets an empty answer.
type Scripted struct {
	answers []string
	// Shown records the items of every prompt in order.
	Shown [][]string
}

func NewScripted(answers ...string) *Scripted {
	return &Scripted{answers: answers}
}

func (s *Scripted) Confirm(ctx context.Context, header string, items []string) (string, error) {
	return s.next(items), nil
}

func (s *Scripted) Choose(ctx context.Context, items []string) (string, error) {
	return s.next(items), nil
}

func (s *Scripted) next(items []string) string {
	s.Shown = append(s.Shown, items)
	if len(s.answers) == 0 {
		return ""
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer
}
