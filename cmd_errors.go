package main

// unwrapErrors flattens the *multierror.Error returned by parser.Parse
// into its individual component errors, so callers can range over each
// syntax error without importing hashicorp/go-multierror themselves.
func unwrapErrors(err error) []error {
	if err == nil {
		return nil
	}
	type unwrapper interface {
		WrappedErrors() []error
	}
	if u, ok := err.(unwrapper); ok {
		return u.WrappedErrors()
	}
	return []error{err}
}
