package editor

import "github.com/atotto/clipboard"

// Clipboard abstracts the system clipboard for tests.
type Clipboard interface {
	Write(text string) error
}

// SystemClipboard writes through to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) Write(text string) error {
	return clipboard.WriteAll(text)
}
