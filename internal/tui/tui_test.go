package tui

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeReader struct{ io.Reader }
type fakeWriter struct{ io.Writer }

func (reader fakeReader) Fd() uintptr { return 1 }
func (writer fakeWriter) Fd() uintptr { return 1 }

func mockTerminal(t *testing.T, isTerminal bool) {
	t.Helper()
	t.Cleanup(SetIsTerminalFuncForTesting(func(int) bool { return isTerminal }))
}

func TestShouldPrompt(t *testing.T) {
	mockTerminal(t, true)
	assert.True(t, ShouldPrompt(false, fakeReader{}, fakeWriter{}))
	assert.False(t, ShouldPrompt(true, fakeReader{}, fakeWriter{}))
	assert.False(t, ShouldPrompt(false, strings.NewReader(""), fakeWriter{}))
}

func TestShouldPromptWithoutTerminal(t *testing.T) {
	mockTerminal(t, false)
	assert.False(t, ShouldPrompt(false, fakeReader{}, fakeWriter{}))
}

func TestWidth(t *testing.T) {
	mockTerminal(t, true)
	previous := getSizeFunc
	t.Cleanup(func() { getSizeFunc = previous })

	getSizeFunc = func(int) (int, int, error) { return 120, 40, nil }
	assert.Equal(t, 120, Width(fakeWriter{}, 80))

	getSizeFunc = func(int) (int, int, error) { return 0, 0, errors.New("no size") }
	assert.Equal(t, 80, Width(fakeWriter{}, 80))

	assert.Equal(t, 80, Width(&strings.Builder{}, 80))
}

func TestBanner(t *testing.T) {
	assert.Empty(t, Banner("mfetch", "1", 0))
	assert.NotEmpty(t, Banner("mfetch", "1", 10, "extra"))
}

func TestColourHelpers(t *testing.T) {
	r, g, b := hexToRGB("#ffffff")
	assert.InDelta(t, 1.0, r+g+b-2, 0.0001)
	r, _, _ = hexToRGB("#0f0")
	assert.Zero(t, r)
	r, g, b = hexToRGB("nope")
	assert.Zero(t, r+g+b)
	assert.True(t, isLight("#FFFFFF"))
	assert.False(t, isLight("#000000"))
}
