// identity.go -- Claims and the identity handed to the host on sign-in.
package jetpass

// Claim types produced by the identity mapper.
const (
	ClaimNameIdentifier = "nameidentifier"
	ClaimName           = "name"
	ClaimEmail          = "email"
)

// ClaimValueString is the value type of every claim built from a profile.
const ClaimValueString = "string"

// Claim is a single (type, value) identity fact.
type Claim struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	ValueType string `json:"value_type,omitempty"`
	Issuer    string `json:"issuer,omitempty"`
}

// Identity is an ordered list of claims tagged with the authentication type that
// produced it. Hooks receive a pointer and may edit Claims in place.
type Identity struct {
	AuthenticationType string  `json:"authentication_type"`
	Claims             []Claim `json:"claims"`
}

// NewIdentity returns an identity with no claims.
func NewIdentity(authenticationType string) *Identity {
	return &Identity{AuthenticationType: authenticationType}
}

// AddClaim appends a claim.
func (id *Identity) AddClaim(c Claim) {
	id.Claims = append(id.Claims, c)
}

// FindFirst returns the value of the first claim of the given type.
func (id *Identity) FindFirst(claimType string) (string, bool) {
	for _, c := range id.Claims {
		if c.Type == claimType {
			return c.Value, true
		}
	}
	return "", false
}

// Values returns every value for claimType in claim order.
func (id *Identity) Values(claimType string) []string {
	var out []string
	for _, c := range id.Claims {
		if c.Type == claimType {
			out = append(out, c.Value)
		}
	}
	return out
}

// Name returns the Name claim, or "" when absent.
func (id *Identity) Name() string {
	v, _ := id.FindFirst(ClaimName)
	return v
}

// WithAuthenticationType returns a copy of the identity re-tagged with authType.
// Claims are copied so the original is left untouched.
func (id *Identity) WithAuthenticationType(authType string) *Identity {
	claims := make([]Claim, len(id.Claims))
	copy(claims, id.Claims)
	return &Identity{AuthenticationType: authType, Claims: claims}
}
