// Package prompt asks for missing values on an interactive terminal.
package prompt

import (
	"errors"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user presses Ctrl+C.
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err means the user aborted the prompt.
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, ErrAborted)
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Input prompts for text, offering defaultValue.
func Input(label, defaultValue string) (string, error) {
	p := promptui.Prompt{Label: label, Default: defaultValue}
	result, err := p.Run()
	return result, wrapError(err)
}

// Password prompts for a masked secret. An empty answer is allowed and
// selects an anonymous logon.
func Password(label string) (string, error) {
	p := promptui.Prompt{Label: label, Mask: '*'}
	result, err := p.Run()
	return result, wrapError(err)
}
