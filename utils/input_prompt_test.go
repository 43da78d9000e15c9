package utils

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmPrompt(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got, err := ConfirmPrompt(bufio.NewReader(strings.NewReader(tt.input)), &out, "Remove snapshots?")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Contains(t, out.String(), "Remove snapshots?")
	}
}

func TestConfirmPromptWithContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	blocked := bufio.NewReader(blockingReader{})
	_, err := ConfirmPromptWithContext(ctx, blocked, &bytes.Buffer{}, "Continue?")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGracefulShutdown_RunsCleanupOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	cleaned := false

	go func() {
		GracefulShutdown(ctx, cancel, func() { cleaned = true })
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not return")
	}
	assert.True(t, cleaned)
}

type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}
