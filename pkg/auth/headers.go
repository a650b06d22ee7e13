package auth

import (
	"net/http"
	"strings"
)

// DefaultUserAgent is sent when the credential does not carry one.
const DefaultUserAgent = "Android-Finsky/41.2.29-23"

// Content types used by the catalog endpoints.
const (
	ContentTypeProtobuf = "application/x-protobuf"
	ContentTypeForm     = "application/x-www-form-urlencoded"
)

// Headers builds the fixed header set for a credential and a region language
// such as he_IL. It performs no I/O.
func Headers(cred *Credential, language string) map[string]string {
	var token, gsfID, cookie, ua string
	if cred != nil {
		token, gsfID, cookie, ua = cred.AuthToken, cred.GSFID, cred.DFECookie, cred.UserAgent
	}
	if ua == "" {
		ua = DefaultUserAgent
	}

	return map[string]string{
		"Authorization":               "Bearer " + token,
		"User-Agent":                  ua,
		"X-DFE-Device-Id":             gsfID,
		"Accept-Language":             strings.ReplaceAll(language, "_", "-"),
		"X-DFE-Client-Id":             "am-android-google",
		"X-DFE-Network-Type":          "4",
		"X-DFE-Content-Filters":       "",
		"X-Limit-Ad-Tracking-Enabled": "false",
		"X-DFE-Cookie":                cookie,
		"X-DFE-No-Prefetch":           "true",
	}
}

// Session applies the header contract of one credential in one region.
type Session struct {
	Credential *Credential
	Language   string
}

// NewSession creates a Session for cred in the given region language.
func NewSession(cred *Credential, language string) *Session {
	return &Session{Credential: cred, Language: language}
}

// Authenticator returns the authenticator for binary protocol calls.
func (s *Session) Authenticator() Authenticator {
	h := Headers(s.Credential, s.Language)
	delete(h, "Authorization")
	h["Content-Type"] = ContentTypeProtobuf
	h["Accept"] = ContentTypeProtobuf

	var token string
	if s.Credential != nil {
		token = s.Credential.AuthToken
	}
	return Chain{HeaderAuth{Headers: h}, BearerAuth{Token: token}}
}

// FormAuthenticator returns the authenticator for form-encoded calls.
func (s *Session) FormAuthenticator() Authenticator {
	return Chain{s.Authenticator(), HeaderAuth{Headers: map[string]string{"Content-Type": ContentTypeForm}}}
}

// Apply implements Authenticator with the binary protocol headers.
func (s *Session) Apply(req *http.Request) error {
	return s.Authenticator().Apply(req)
}

// Type returns the authentication type (ChainAuthType).
func (s *Session) Type() Type { return ChainAuthType }
