// profile.go -- Maps the user-info JSON into a Profile and the Profile into claims.
package jetpass

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

// Profile is the normalized view of the user-info document.
// Empty ID or Name means the field was absent. Emails holds verified addresses only,
// in document order.
type Profile struct {
	ID     string
	Name   string
	Emails []string
	Raw    json.RawMessage
}

// ParseProfile reads the optional top-level id and name fields and the entries of
// the contacts array whose verified field is the JSON literal true. The document
// must be a JSON object.
func ParseProfile(raw []byte) (*Profile, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("profile is not valid JSON")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, errors.New("profile is not a JSON object")
	}

	p := &Profile{
		ID:   doc.Get("id").String(),
		Name: doc.Get("name").String(),
		Raw:  json.RawMessage(raw),
	}
	doc.Get("contacts").ForEach(func(_, contact gjson.Result) bool {
		if contact.Get("verified").Type != gjson.True {
			return true
		}
		if email := contact.Get("email").String(); email != "" {
			p.Emails = append(p.Emails, email)
		}
		return true
	})
	return p, nil
}

// Identity builds the claim list: NameIdentifier when ID is set, Name when Name is
// set, then one Email per verified address. Every claim is issued by authType.
func (p *Profile) Identity(authType string) *Identity {
	id := NewIdentity(authType)
	add := func(claimType, value string) {
		id.AddClaim(Claim{Type: claimType, Value: value, ValueType: ClaimValueString, Issuer: authType})
	}
	if p.ID != "" {
		add(ClaimNameIdentifier, p.ID)
	}
	if p.Name != "" {
		add(ClaimName, p.Name)
	}
	for _, email := range p.Emails {
		add(ClaimEmail, email)
	}
	return id
}
