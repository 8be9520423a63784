// properties.go -- Per-attempt property bag carried through the state parameter.
package jetpass

import (
	"encoding/json"
	"fmt"
)

// correlationKey is the reserved property holding the CSRF correlation id.
const correlationKey = ".xsrf"

// Properties is the ordered key/value bag created for each challenge and recovered
// from the state parameter on callback. RedirectURI is where the user agent returns
// once authentication finishes; it is not the OAuth redirect_uri (see callbackURL).
//
// The challenge writes the correlation id and removes transport-only keys; the
// callback only reads. A Properties value is owned by a single request.
type Properties struct {
	RedirectURI string

	keys   []string
	values map[string]string
}

// NewProperties returns an empty bag.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (p *Properties) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Set stores value under key, keeping the original position if key already exists.
func (p *Properties) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Delete removes key. Missing keys are ignored.
func (p *Properties) Delete(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Take returns the value under key and removes it from the bag.
// Used to move authorize parameters into the query string so they are not
// serialized a second time into the state.
func (p *Properties) Take(key string) (string, bool) {
	v, ok := p.values[key]
	if ok {
		p.Delete(key)
	}
	return v, ok
}

// Keys returns the keys in insertion order.
func (p *Properties) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len reports the number of stored keys, not counting RedirectURI.
func (p *Properties) Len() int { return len(p.keys) }

// Clone returns a deep copy.
func (p *Properties) Clone() *Properties {
	c := NewProperties()
	c.RedirectURI = p.RedirectURI
	for _, k := range p.keys {
		c.Set(k, p.values[k])
	}
	return c
}

// Equal reports whether both bags hold the same redirect target and the same
// entries in the same order.
func (p *Properties) Equal(o *Properties) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.RedirectURI != o.RedirectURI || len(p.keys) != len(o.keys) {
		return false
	}
	for i, k := range p.keys {
		if o.keys[i] != k || o.values[k] != p.values[k] {
			return false
		}
	}
	return true
}

// propertiesJSON is the wire shape; items is an array so key order survives.
type propertiesJSON struct {
	RedirectURI string      `json:"redirect_uri,omitempty"`
	Items       [][2]string `json:"items,omitempty"`
}

// MarshalJSON encodes the bag preserving key order.
func (p *Properties) MarshalJSON() ([]byte, error) {
	out := propertiesJSON{RedirectURI: p.RedirectURI}
	for _, k := range p.keys {
		out.Items = append(out.Items, [2]string{k, p.values[k]})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a bag produced by MarshalJSON.
func (p *Properties) UnmarshalJSON(b []byte) error {
	var in propertiesJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return fmt.Errorf("decoding properties: %w", err)
	}
	*p = Properties{RedirectURI: in.RedirectURI, values: make(map[string]string, len(in.Items))}
	for _, it := range in.Items {
		p.Set(it[0], it[1])
	}
	return nil
}
