package redirects

// RedirectInput carries the client-supplied fields of a redirect.
// It is used for both create and full update.
type RedirectInput struct {
	Key    string
	Target string
}
