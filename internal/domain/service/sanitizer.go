package service

// ContentSanitizer strips markup from user-supplied text before it is stored.
type ContentSanitizer interface {
	Sanitize(input string) string
}
