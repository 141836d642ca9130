package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Verifier answers whether the device owner is present.
type Verifier interface {
	Verify(ctx context.Context) (bool, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context) (bool, error)

func (f VerifierFunc) Verify(ctx context.Context) (bool, error) { return f(ctx) }

// PromptVerifier asks on a terminal and accepts "y" or "yes".
type PromptVerifier struct {
	In  io.Reader
	Out io.Writer
}

func (p PromptVerifier) Verify(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprint(p.Out, "Confirm you are the owner of this device [y/N]: ")

	scanner := bufio.NewScanner(p.In)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return false, fmt.Errorf("read confirmation: %w", err)
		}
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
