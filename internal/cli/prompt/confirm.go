package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// Confirm asks a yes/no question. An empty answer selects defaultYes.
func Confirm(label string, defaultYes bool) (bool, error) {
	choices := "y/N"
	if defaultYes {
		choices = "Y/n"
	}

	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [%s]", label, choices),
		IsConfirm: true,
	}
	result, err := p.Run()
	if err != nil {
		switch {
		case errors.Is(err, promptui.ErrInterrupt):
			return false, ErrAborted
		case errors.Is(err, promptui.ErrAbort):
			// promptui reports "n" as ErrAbort.
			return false, nil
		case result == "":
			return defaultYes, nil
		}
		return false, err
	}

	answer := strings.ToLower(result)
	return answer == "y" || answer == "yes", nil
}

// ConfirmWithForce skips the question when force is set.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}
