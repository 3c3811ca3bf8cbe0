package domain

// RedirectID is an internal identifier for a redirect record.
// It is an opaque UUID string; generation happens at the application layer.
type RedirectID string
