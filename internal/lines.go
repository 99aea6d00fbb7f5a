package internal

import (
	"bufio"
	"io"
	"iter"
)

// Lines iterates over the lines of a reader, without line terminators.
// A read error is yielded once, as the final element.
func Lines(input io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			if !yield(scanner.Text(), nil) {
				return // Stop if the consumer stops
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", err)
		}
	}
}
