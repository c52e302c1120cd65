package cmd

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestCommandContextTimeout(t *testing.T) {
	viper.Set("timeout", 250*time.Millisecond)
	defer viper.Set("timeout", time.Duration(0))

	ctx, cancel := commandContext()
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatalf("expected a deadline when timeout is set")
	}
	if remaining := time.Until(deadline); remaining > 250*time.Millisecond {
		t.Fatalf("deadline too far out: %v", remaining)
	}
}

func TestCommandContextNoTimeout(t *testing.T) {
	viper.Set("timeout", time.Duration(0))

	ctx, cancel := commandContext()
	if _, ok := ctx.Deadline(); ok {
		t.Fatalf("expected no deadline when timeout is unset")
	}

	cancel()
	if ctx.Err() == nil {
		t.Fatalf("cancel must cancel the run context")
	}
}
