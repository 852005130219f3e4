package monitoring

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// TokenSource yields an OAuth access token for the monitoring API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", errors.New("empty access token")
	}
	return string(t), nil
}

// CommandToken prints a token via an external command, e.g. "gcloud auth print-access-token".
type CommandToken struct {
	Args    []string
	Timeout time.Duration
}

// Token implements TokenSource.
func (t CommandToken) Token(ctx context.Context) (string, error) {
	if len(t.Args) == 0 {
		return "", errors.New("token command is empty")
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, t.Args[0], t.Args[1:]...).Output()
	if err != nil {
		return "", fmt.Errorf("run %s: %w", t.Args[0], err)
	}
	tok := strings.TrimSpace(string(out))
	if tok == "" {
		return "", fmt.Errorf("%s printed no token", t.Args[0])
	}
	return tok, nil
}
