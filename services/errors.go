// Package services holds the business logic for authentication, posts and
// user profiles.
package services

// Kind classifies a service failure so the HTTP layer can pick a status.
type Kind int

const (
	KindValidation Kind = iota + 1 // bad or duplicate input
	KindAuth                       // credential or token mismatch
	KindNotFound                   // missing resource
	KindDependency                 // store, object store or hasher failure
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func validationErr(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func authErr(msg string) error       { return &Error{Kind: KindAuth, Message: msg} }
func notFoundErr(msg string) error   { return &Error{Kind: KindNotFound, Message: msg} }

func dependencyErr(msg string, err error) error {
	return &Error{Kind: KindDependency, Message: msg, Err: err}
}
