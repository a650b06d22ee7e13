package hooks

import (
	"github.com/glorpus-work/apkfetch/pkg/errors"
)

// Common hooks errors.
var (
	// ErrHookTypeEmpty is returned when a hooks type is empty.
	ErrHookTypeEmpty = errors.ErrHookTypeEmpty

	// ErrHookExecution is returned when there's an error executing a hooks.
	ErrHookExecution = errors.ErrHookExecution

	// ErrHookScript is returned when there's an error in a hooks script.
	ErrHookScript = errors.ErrHookScript

	// ErrHookLoad is returned when there's an error loading a hooks.
	ErrHookLoad = errors.ErrHookLoad
)

// ErrUnsupportedHookEvent is returned when an unsupported hooks event is used.
func ErrUnsupportedHookEvent(event string) error {
	return errors.Wrapf(errors.ErrUnsupportedHookEvent, "%q (valid: %s, %s)", event, PostResolve, PostDownload)
}
