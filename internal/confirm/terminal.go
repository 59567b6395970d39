package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"archcanvas/internal/domain"
)

// CancelInput dismisses any terminal dialog
const CancelInput = "/cancel"

// Terminal presents dialogs as numbered prompts on a line-oriented terminal.
// It owns the input reader so the shell loop and the dialogs never race for
// the same line.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal creates a terminal surface reading from in and writing to out
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// ReadLine reads one trimmed line. io.EOF is returned at end of input.
func (t *Terminal) ReadLine(ctx context.Context) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	line, err := t.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Printf writes to the terminal output
func (t *Terminal) Printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}

// ChooseSubtype implements Surface
func (t *Terminal) ChooseSubtype(ctx context.Context, componentType domain.ComponentType, options []domain.SubtypeOption) (string, error) {
	t.Printf("Select %s subtype:\n", componentType.Words())
	for i, opt := range options {
		if opt.Description != "" {
			t.Printf("  %d) %s - %s\n", i+1, opt.DisplayName(), opt.Description)
		} else {
			t.Printf("  %d) %s\n", i+1, opt.DisplayName())
		}
	}

	idx, err := t.choose(ctx, len(options), func(s string) int {
		for i, opt := range options {
			if strings.EqualFold(s, opt.ID) {
				return i
			}
		}
		return -1
	})
	if err != nil {
		return "", err
	}
	return options[idx].ID, nil
}

// EnterName implements Surface. An empty line accepts the default.
func (t *Terminal) EnterName(ctx context.Context, componentType domain.ComponentType, subtype, defaultName string) (string, error) {
	kind := componentType.Words()
	if subtype != "" {
		kind = fmt.Sprintf("%s (%s)", kind, domain.TitleWords(subtype))
	}
	t.Printf("Name for new %s [%s]: ", kind, defaultName)

	line, err := t.ReadLine(ctx)
	if err != nil {
		return "", t.readErr(ctx, err)
	}
	switch line {
	case CancelInput:
		return "", ErrCancelled
	case "":
		return defaultName, nil
	}
	return line, nil
}

// ChooseLinkType implements Surface
func (t *Terminal) ChooseLinkType(ctx context.Context, options []domain.LinkType, sourceLabel, targetLabel string) (domain.LinkType, error) {
	t.Printf("Select connection type from %s to %s:\n", sourceLabel, targetLabel)
	for i, lt := range options {
		t.Printf("  %d) %s\n", i+1, lt.Words())
	}

	idx, err := t.choose(ctx, len(options), func(s string) int {
		for i, lt := range options {
			if strings.EqualFold(s, string(lt)) || strings.EqualFold(s, lt.Words()) {
				return i
			}
		}
		return -1
	})
	if err != nil {
		return "", err
	}
	return options[idx], nil
}

// choose reads until the operator enters a 1-based index or a value lookup
// recognises. An empty line or CancelInput cancels.
func (t *Terminal) choose(ctx context.Context, n int, lookup func(string) int) (int, error) {
	for {
		t.Printf("Choice (1-%d, empty to cancel): ", n)
		line, err := t.ReadLine(ctx)
		if err != nil {
			return 0, t.readErr(ctx, err)
		}
		if line == "" || line == CancelInput {
			return 0, ErrCancelled
		}
		if i, err := strconv.Atoi(line); err == nil && i >= 1 && i <= n {
			return i - 1, nil
		}
		if i := lookup(line); i >= 0 {
			return i, nil
		}
		t.Printf("Invalid choice %q\n", line)
	}
}

func (t *Terminal) readErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return cancelled(ctx)
	}
	if err == io.EOF {
		return ErrCancelled
	}
	return fmt.Errorf("reading input: %w", err)
}
