package main

import "github.com/atotto/clipboard"

// Clipboard receives the serialized candidate list.
type Clipboard interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}
