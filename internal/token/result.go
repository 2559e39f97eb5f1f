package token

// Result is the outcome of verifying a token. Exactly one of Valid, Expired
// or Invalid; the set is closed to other packages.
type Result interface {
	result()
}

// Valid is a correctly signed, unexpired token with a readable payload.
type Valid struct {
	Email string
}

// Expired is a correctly signed token past its expiry.
type Expired struct{}

// Invalid is anything else: bad signature, wrong secret or algorithm,
// malformed framing, or an unreadable payload.
type Invalid struct{}

func (Valid) result()   {}
func (Expired) result() {}
func (Invalid) result() {}

// Status labels used in logs and metrics.
const (
	StatusValid   = "valid"
	StatusExpired = "expired"
	StatusInvalid = "invalid"
)

// StatusOf returns the label for r. A nil Result is reported as invalid.
func StatusOf(r Result) string {
	switch r.(type) {
	case Valid:
		return StatusValid
	case Expired:
		return StatusExpired
	default:
		return StatusInvalid
	}
}

// EmailOf returns the email carried by a Valid result.
func EmailOf(r Result) (string, bool) {
	v, ok := r.(Valid)
	return v.Email, ok
}
