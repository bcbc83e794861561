package errs

import "errors"

// InternalError is what clients see in place of unexpected failures.
var InternalError = errors.New("internal error")
