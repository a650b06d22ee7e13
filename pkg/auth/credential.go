package auth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMalformedCredential is returned when a serialized credential cannot be used.
var ErrMalformedCredential = fmt.Errorf("malformed credential")

// Credential is a bearer credential obtained from the issuance endpoint.
// It is never mutated after it is obtained; a fresh issuance supersedes it.
type Credential struct {
	AuthToken string `json:"authToken"`
	GSFID     string `json:"gsfId"`
	DFECookie string `json:"dfeCookie,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Complete reports whether the credential carries both a token and a device id.
func (c *Credential) Complete() bool {
	return c != nil && c.AuthToken != "" && c.GSFID != ""
}

// String hides the token so credentials can appear in log fields.
func (c *Credential) String() string {
	if c == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Credential{gsfId=%s, token=%s}", c.GSFID, redact(c.AuthToken))
}

// Marshal serializes the credential in the format ParseCredential accepts.
func (c *Credential) Marshal() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ParseCredential extracts a credential from a JSON document. It accepts the
// issuance response, the cache file format and operator supplied overrides.
// The user agent may be flat (userAgent) or nested under
// deviceInfoProvider.userAgentString.
func ParseCredential(data []byte) (*Credential, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedCredential)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedCredential)
	}

	cred := &Credential{
		AuthToken: doc.Get("authToken").String(),
		GSFID:     doc.Get("gsfId").String(),
		DFECookie: doc.Get("dfeCookie").String(),
		UserAgent: doc.Get("userAgent").String(),
	}
	if cred.UserAgent == "" {
		cred.UserAgent = doc.Get("deviceInfoProvider.userAgentString").String()
	}
	if !cred.Complete() {
		return nil, fmt.Errorf("%w: token or device id missing", ErrMalformedCredential)
	}
	return cred, nil
}

func redact(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + "..." + s[len(s)-4:]
}
