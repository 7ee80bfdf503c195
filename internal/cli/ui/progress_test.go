package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpinnerStartStop(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "loading packages", time.Millisecond, true)
	s.Start()
	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()
	s.Stop()

	assert.Contains(t, buf.String(), "loading packages")
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\r\033[K")))
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	NewSpinner(&buf, "x", 0, true).Stop()
	assert.Equal(t, "\r\033[K", buf.String())
}

func TestWithSpinner(t *testing.T) {
	var buf bytes.Buffer
	want := errors.New("load failed")
	err := WithSpinner(&buf, "loading", false, true, func() error { return want })
	require.ErrorIs(t, err, want)
	assert.Empty(t, buf.String())

	called := false
	require.NoError(t, WithSpinner(&buf, "loading", true, true, func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
}
