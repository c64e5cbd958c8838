package common

import "errors"

// ErrNotFound is returned by stores when the requested row does not exist.
// Services test for it with errors.Is to tell a miss from a failure.
var ErrNotFound = errors.New("not found")
