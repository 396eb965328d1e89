package gtp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	defaultCommandTimeout = 15 * time.Second

	okMarker   = "="
	failMarker = "?"
)

// CommandError is a reply the engine explicitly rejected (the "?" marker),
// as opposed to a transport or timeout failure.
type CommandError struct {
	Cmd   string
	Reply string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("engine rejected %q: %s", e.Cmd, e.Reply)
}

// Session wraps one engine subprocess with serialized line-based I/O.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	mu    sync.Mutex // guards stdin writes
	cmdMu sync.Mutex // serializes whole command/reply exchanges
}

func NewSession(ctx context.Context, binaryPath string, args ...string) (*Session, error) {
	cmd := exec.CommandContext(ctx, binaryPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	return &Session{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdoutPipe),
	}, nil
}

// Command sends one command line and returns the payload of the matching
// reply line, stripped of its success marker. It fails on the failure
// marker, transport errors, or timeout.
func (s *Session) Command(ctx context.Context, format string, args ...any) (string, error) {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	line := fmt.Sprintf(format, args...)
	if err := s.send(line + "\n"); err != nil {
		return "", fmt.Errorf("send %q: %w", line, err)
	}

	cmdCtx, cancel := context.WithTimeout(ctx, defaultCommandTimeout)
	defer cancel()

	for {
		reply, err := s.readLine(cmdCtx)
		if err != nil {
			return "", fmt.Errorf("read reply for %q: %w", line, err)
		}
		if reply == "" {
			continue
		}
		switch {
		case strings.HasPrefix(reply, okMarker):
			return strings.TrimSpace(strings.TrimPrefix(reply, okMarker)), nil
		case strings.HasPrefix(reply, failMarker):
			return "", &CommandError{
				Cmd:   line,
				Reply: strings.TrimSpace(strings.TrimPrefix(reply, failMarker)),
			}
		}
		// Anything unmarked is engine chatter; keep reading.
	}
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	if s.cmd != nil {
		return s.cmd.Wait()
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := s.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return "", res.err
		}
		return res.line, nil
	}
}
