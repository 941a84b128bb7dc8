package market

import "errors"

// ErrInvalidInput marks data that cannot be fixed by retrying: bad
// timestamps, negative quantities, unknown sides.
var ErrInvalidInput = errors.New("invalid input")
