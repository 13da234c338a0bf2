package auth

// Kind discriminates the three principal types. It is carried in the token's
// "type" claim and doubles as the login grant type.
type Kind string

const (
	KindHospital Kind = "hospital"
	KindUser     Kind = "user"
	KindPatient  Kind = "patient"
)

// ParseKind maps a grant type or claim value to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindHospital, KindUser, KindPatient:
		return k, true
	}
	return "", false
}

func (k Kind) String() string { return string(k) }
