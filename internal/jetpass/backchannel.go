// backchannel.go -- Shared HTTP client for the token and user-info calls.
package jetpass

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// maxResponseSize caps backchannel response bodies (10 MiB).
const maxResponseSize = 10 << 20

// CertificateValidator checks the provider's certificate chain during the TLS
// handshake, after the standard verification has passed.
type CertificateValidator interface {
	ValidateCertificate(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error
}

// SPKIPinValidator accepts a connection when any certificate in a verified chain has a
// SubjectPublicKeyInfo whose SHA-256 (standard base64) is in Pins.
type SPKIPinValidator struct {
	Pins []string
}

// ValidateCertificate implements CertificateValidator.
func (v *SPKIPinValidator) ValidateCertificate(_ [][]byte, verifiedChains [][]*x509.Certificate) error {
	for _, chain := range verifiedChains {
		for _, cert := range chain {
			sum := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
			got := base64.StdEncoding.EncodeToString(sum[:])
			for _, pin := range v.Pins {
				if pin == got {
					return nil
				}
			}
		}
	}
	return errors.New("no certificate matched a pinned public key")
}

// newBackchannelClient builds the long-lived client shared by every request.
func newBackchannelClient(transport http.RoundTripper, validator CertificateValidator, timeout time.Duration) (*http.Client, error) {
	if transport == nil {
		base, ok := http.DefaultTransport.(*http.Transport)
		if !ok {
			return nil, fmt.Errorf("default transport is %T", http.DefaultTransport)
		}
		t := base.Clone()
		t.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		transport = t
	}

	if validator != nil {
		t, ok := transport.(*http.Transport)
		if !ok {
			return nil, ErrValidatorTransportMismatch
		}
		t = t.Clone()
		if t.TLSClientConfig == nil {
			t.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		t.TLSClientConfig.VerifyPeerCertificate = validator.ValidateCertificate
		transport = t
	}

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// clientAuthTransport sets Authorization: Basic base64(id:secret) on every request,
// with the credentials taken as-is. oauth2's AuthStyleInHeader form-escapes them
// first, which alters secrets containing characters such as + / = or spaces.
type clientAuthTransport struct {
	base   http.RoundTripper
	id     string
	secret string
}

func (t *clientAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.id, t.secret)
	return t.base.RoundTrip(req)
}

// newTokenClient wraps the backchannel client for calls to the token endpoint.
func newTokenClient(backchannel *http.Client, clientID, clientSecret string) *http.Client {
	return &http.Client{
		Transport: &clientAuthTransport{base: backchannel.Transport, id: clientID, secret: clientSecret},
		Timeout:   backchannel.Timeout,
	}
}
