package repository

import "errors"

// ErrAlreadySubmitted is returned when a conditional attempt upsert matched a submitted row.
var ErrAlreadySubmitted = errors.New("attempt already submitted")
