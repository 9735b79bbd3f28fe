package errext

import "strconv"

// Kind identifies one exception type in the hierarchy. The built-in kinds are a
// closed set; custom kinds can only be derived from open kinds through
// Registry.Extend.
//
// Kind implements error so that it can be used as an errors.Is target:
// errors.Is(err, KindEngine) holds for every exception whose kind is
// KindEngine or one of its descendants.
type Kind uint8

// The built-in exception kinds.
const (
	KindEngine Kind = iota + 1
	KindScript
	KindTimeLimit
	KindMemoryLimit

	firstCustomKind
)

// String returns the registered name of the kind.
func (k Kind) String() string {
	if r, err := RegisterExceptionHierarchy(); err == nil {
		if info, ok := r.Info(k); ok {
			return info.Name
		}
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Error implements the error interface.
func (k Kind) Error() string {
	return k.String()
}

func isKind(k, parent Kind) bool {
	r, err := RegisterExceptionHierarchy()
	if err != nil {
		return k == parent
	}
	return r.IsSubclass(k, parent)
}
