// Package clipboard mirrors the copy buffer to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

var ErrUnavailable = errors.New("system clipboard unavailable")

// Board is a text clipboard.
type Board interface {
	Write(text string) error
	Read() (string, error)
}

// System writes to the operating system clipboard. The zero value is ready
// to use.
type System struct{}

func (System) Write(text string) error {
	if clipboard.Unsupported {
		return ErrUnavailable
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

func (System) Read() (string, error) {
	if clipboard.Unsupported {
		return "", ErrUnavailable
	}
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return text, nil
}

// Memory is an in-process clipboard for platforms without one.
type Memory struct {
	text string
}

func (m *Memory) Write(text string) error {
	m.text = text
	return nil
}

func (m *Memory) Read() (string, error) { return m.text, nil }

// Detect returns the system clipboard when one is available, otherwise an
// in-process one.
func Detect() Board {
	if clipboard.Unsupported {
		return &Memory{}
	}
	return System{}
}
