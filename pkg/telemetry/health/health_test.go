package health

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestChecker_AllOK(t *testing.T) {
	c := New(time.Second)
	c.Register("rules", func(context.Context) error { return nil })
	c.Register("source", func(context.Context) error { return nil })

	report := c.Run(context.Background())
	assert.True(t, report.Healthy())
	require.Len(t, report.Checks, 2)
	assert.Equal(t, "rules", report.Checks[0].Name)
	assert.Equal(t, "source", report.Checks[1].Name)
	assert.Equal(t, StatusOK, report.Checks[0].Status)
}

func TestChecker_Failure(t *testing.T) {
	c := New(time.Second)
	c.Register("rules", func(context.Context) error { return nil })
	c.Register("source", func(context.Context) error { return errors.New("table not found") })

	report := c.Run(context.Background())
	assert.False(t, report.Healthy())
	assert.Equal(t, StatusFailed, report.Status)
	assert.Equal(t, StatusFailed, report.Checks[1].Status)
	assert.Equal(t, "table not found", report.Checks[1].Message)
}

func TestChecker_Skipped(t *testing.T) {
	c := New(time.Second)
	c.Register("history", func(context.Context) error {
		return fmt.Errorf("history: %w", ErrSkipped)
	})

	report := c.Run(context.Background())
	assert.True(t, report.Healthy(), "skipped checks do not fail the report")
	assert.Equal(t, StatusSkipped, report.Checks[0].Status)
	assert.Equal(t, "history: not configured", report.Checks[0].Message)
}

func TestChecker_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	c := New(20 * time.Millisecond)
	c.Register("slow", func(context.Context) error {
		<-release
		return nil
	})

	report := c.Run(context.Background())
	close(release)

	assert.False(t, report.Healthy())
	assert.Equal(t, "check timed out", report.Checks[0].Message)

	// Let the abandoned check goroutine finish before leak detection.
	time.Sleep(10 * time.Millisecond)
}

func TestChecker_RegisterReplaces(t *testing.T) {
	c := New(0)
	c.Register("a", func(context.Context) error { return errors.New("old") })
	c.Register("b", func(context.Context) error { return nil })
	c.Register("a", func(context.Context) error { return nil })

	assert.Equal(t, []string{"a", "b"}, c.Names())
	assert.True(t, c.Run(context.Background()).Healthy())
}

func TestChecker_Empty(t *testing.T) {
	report := New(0).Run(context.Background())
	assert.True(t, report.Healthy())
	assert.Empty(t, report.Checks)
}
