package internal

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
)

func TestLines(t *testing.T) {
	assert := assert.New(t)

	var lines []string
	for line, err := range Lines(strings.NewReader("NOP\n\nLOAD #1\r\nRTS")) {
		assert.NoError(err)
		lines = append(lines, line)
	}

	assert.Equal([]string{"NOP", "", "LOAD #1", "RTS"}, lines)
}

func TestLines_Error(t *testing.T) {
	assert := assert.New(t)

	boom := errors.New("boom")

	var got error
	for _, err := range Lines(iotest.ErrReader(boom)) {
		got = err
	}

	assert.ErrorIs(got, boom)
}

func TestLines_Stop(t *testing.T) {
	assert := assert.New(t)

	count := 0
	for range Lines(strings.NewReader("a\nb\nc")) {
		count++
		break
	}

	assert.Equal(1, count)
}
