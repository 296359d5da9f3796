package store

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// CLI lists a store through a password manager's flat listing, as printed
// by "gopass ls --flat": one entry name per line.
type CLI struct {
	Bin     string
	OTPGlob string
	Log     *zap.Logger
}

// List implements Lister.
func (c *CLI) List(ctx context.Context, otp bool) ([]string, error) {
	bin, err := exec.LookPath(c.Bin)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, exec.ErrDot) {
			return nil, fmt.Errorf("store: %w: %s", ErrBinaryNotFound, c.Bin)
		}
		return nil, fmt.Errorf("store: %w", err)
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "ls", "--flat")
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("store: %s ls: %w", c.Bin, err)
		}
		return nil, fmt.Errorf("store: %s ls: %w: %s", c.Bin, err, msg)
	}
	names, err := ParseFlat(bytes.NewReader(out))
	if err != nil {
		return nil, err
	}
	if log := c.Log; log != nil {
		log.Debug("listed store", zap.String("bin", c.Bin), zap.Int("entries", len(names)))
	}
	if otp {
		glob := c.OTPGlob
		if glob == "" {
			glob = "*-otp" + Suffix
		}
		kept := names[:0]
		for _, n := range names {
			if matches(glob, n) {
				kept = append(kept, n)
			}
		}
		names = kept
	}
	SortFold(names)
	return names, nil
}

// ParseFlat reads a flat listing. Blank lines are ignored and surrounding
// space is trimmed.
func ParseFlat(r io.Reader) ([]string, error) {
	var names []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		l := strings.TrimSpace(s.Text())
		if l == "" {
			continue
		}
		names = append(names, l)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("store: reading listing: %w", err)
	}
	return names, nil
}
