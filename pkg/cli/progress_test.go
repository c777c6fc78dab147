package cli

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestSimpleProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(4)
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			progress.Increment()
		}()
	}
	wg.Wait()
	progress.Finish()

	output := buf.String()
	if !strings.Contains(output, "Jobs:") {
		t.Error("Expected progress output to contain 'Jobs:'")
	}
	if !strings.Contains(output, "4/4") {
		t.Errorf("Expected final count 4/4, got %q", output)
	}
}

func TestSimpleProgressIncrementPastTotal(t *testing.T) {
	progress := NewProgressReporter(&bytes.Buffer{})
	progress.Start(1)
	progress.Increment()
	progress.Increment()

	if progress.current != 1 {
		t.Errorf("current = %d, want 1", progress.current)
	}
}

func TestSimpleProgressZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(0)
	progress.Increment()
	progress.Finish()

	if strings.Contains(buf.String(), "Jobs:") {
		t.Error("zero total should not render a bar")
	}
}

func TestSimpleProgressError(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf)

	progress.Start(2)
	progress.Error(fmt.Errorf("job parcels failed"))

	if !strings.Contains(buf.String(), "Error: job parcels failed") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestNopProgress(t *testing.T) {
	var p ProgressReporter = NopProgress{}
	p.Start(3)
	p.Increment()
	p.Error(fmt.Errorf("ignored"))
	p.Finish()
}
