package loaders

import (
	"errors"

	"github.com/rotisserie/eris"
)

// ErrInvalidInput marks malformed or missing input data. Input errors are
// fatal: the pipeline aborts before issuing any routing request.
var ErrInvalidInput = errors.New("invalid input")

func invalidf(format string, args ...any) error {
	return eris.Wrapf(ErrInvalidInput, format, args...)
}
