package domain

import "errors"

// ErrNotFound is returned by stores when a key or id does not exist.
var ErrNotFound = errors.New("not found")

// ErrSessionOpen is returned when a second editing session is opened for the same workflow.
var ErrSessionOpen = errors.New("session already open")
