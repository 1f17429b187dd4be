package behavior

import "fmt"

// RejectionKind separates the built in "nothing matched" reason from
// reasons supplied by domain code, callers need to know whether a command
// was illegal for the state or explicitly refused.
type RejectionKind int

const (
	// KindHandlerNotDefined means no command fragment of the current
	// state matched the command.
	KindHandlerNotDefined RejectionKind = iota + 1

	// KindDomain means a fragment matched and refused the command on
	// a business rule.
	KindDomain
)

func (k RejectionKind) String() string {
	switch k {
	case KindHandlerNotDefined:
		return "handler_not_defined"
	case KindDomain:
		return "domain"
	}
	return "unknown"
}

func (k RejectionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *RejectionKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "handler_not_defined":
		*k = KindHandlerNotDefined
	case "domain":
		*k = KindDomain
	default:
		return fmt.Errorf("behavior: unknown rejection kind %q", b)
	}
	return nil
}

// CodeHandlerNotDefined is the code carried by every built in rejection.
const CodeHandlerNotDefined = "handler_not_defined"

// Rejection is a recoverable, human readable reason for refusing a
// command. It satisfies error so that transports can hand it on, but it
// is never returned as an error from this package.
type Rejection struct {
	Kind    RejectionKind `json:"kind"`
	Code    string        `json:"code"`
	Message string        `json:"message"`
}

func (r Rejection) Error() string {
	return fmt.Sprintf("rejected (%s): %s", r.Code, r.Message)
}

func (r Rejection) IsHandlerNotDefined() bool { return r.Kind == KindHandlerNotDefined }
func (r Rejection) IsDomain() bool            { return r.Kind == KindDomain }

// HandlerNotDefined builds the built in reason for a command which no
// fragment of the given state knows about.
func HandlerNotDefined(state, cmd interface{}) Rejection {
	return Rejection{
		Kind:    KindHandlerNotDefined,
		Code:    CodeHandlerNotDefined,
		Message: fmt.Sprintf("no handler defined for %T in state %T", cmd, state),
	}
}

// Domain builds a domain supplied rejection.
func Domain(code, message string) Rejection {
	return Rejection{Kind: KindDomain, Code: code, Message: message}
}
