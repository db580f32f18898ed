package sentinel

var _ error = Error("")

// Error is a constant-declarable error. Two Error values are equal when their
// messages are equal, which is what errors.Is relies on.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
