// Package ferrors classifies the error kinds spec.md §7 enumerates, so
// callers can branch on recovery policy (abort assembly vs. log-and-continue)
// without string matching.
package ferrors

import "fmt"

// Kind classifies an error for the purposes of spec.md §7's recovery table.
type Kind string

const (
	// KindConfigInvalid rejects assembly; on reassemble, the previous graph
	// keeps running.
	KindConfigInvalid Kind = "config_invalid"

	// KindConfigReferentialIntegrity is treated identically to
	// KindConfigInvalid by the Supervisor.
	KindConfigReferentialIntegrity Kind = "config_referential_integrity"

	// KindDataSourceRead is tick-local: the Beer treats the poll as missing
	// or stale data and continues.
	KindDataSourceRead Kind = "datasource_read"

	// KindDataSourceAuth is surfaced identically to KindDataSourceRead but
	// logged more prominently by the caller.
	KindDataSourceAuth Kind = "datasource_auth"

	// KindRelayActuation is tick-local: the Manager logs and treats the
	// relay as off.
	KindRelayActuation Kind = "relay_actuation"

	// KindBeerLogic marks the requires_heating ∧ requires_cooling
	// contradiction; the Manager forces both relays off.
	KindBeerLogic Kind = "beer_logic"

	// KindUnsupportedUnit is treated as KindConfigInvalid at assemble time.
	KindUnsupportedUnit Kind = "unsupported_unit"
)

// Error is a classified error carrying a Kind alongside its message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a classified Error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs a classified Error around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	fe, ok := err.(*Error)
	return ok && fe.Kind == kind
}
