package domain

import "errors"

// ErrInvalidWindow é retornado quando MaxRequests ou Duration não são positivos.
var ErrInvalidWindow = errors.New("rate limit window must have positive max requests and duration")
