package provider

import "errors"

// ErrSourceUnavailable is wrapped by every Source when a fetch fails or
// yields no rows for the requested scope. The scope is skipped without
// writes.
var ErrSourceUnavailable = errors.New("source unavailable")
