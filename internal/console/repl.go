package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// LineReader yields one console line per call and io.EOF at the end.
// *term.Terminal satisfies it.
type LineReader interface {
	ReadLine() (string, error)
}

// plainReader reads newline-terminated lines from a non-terminal stream,
// printing the prompt before each one.
type plainReader struct {
	scanner *bufio.Scanner
	out     io.Writer
	prompt  string
}

func newPlainReader(in io.Reader, out io.Writer, prompt string) *plainReader {
	return &plainReader{scanner: bufio.NewScanner(in), out: out, prompt: prompt}
}

func (r *plainReader) ReadLine() (string, error) {
	if r.prompt != "" {
		fmt.Fprint(r.out, r.prompt)
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

// Serve runs commands read from r until EOF, an exit line or ctx is done.
func (c *Console) Serve(ctx context.Context, r LineReader) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read console line: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if IsExit(line) {
			return nil
		}
		if code := c.Run(ctx, line); code != 0 {
			c.log.Debug("Command returned non-zero code", zap.String("line", line), zap.Int("code", code))
		}
	}
}

// Interactive serves the console on in and out. A terminal gets line
// editing and history through x/term in raw mode, anything else is read
// line by line. Command output follows the chosen stream.
func (c *Console) Interactive(ctx context.Context, in, out *os.File) error {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		c.out = out
		return c.Serve(ctx, newPlainReader(in, out, Prompt))
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enable raw terminal mode: %w", err)
	}
	defer term.Restore(fd, state)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, promptStyle.Render(Prompt))
	if width, height, err := term.GetSize(fd); err == nil {
		t.SetSize(width, height)
	}

	c.out = t
	return c.Serve(ctx, t)
}
