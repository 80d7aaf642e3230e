package registration

import (
	"net/url"
	"strings"
)

// LinkBuilder produces the absolute URIs embedded in registration emails.
type LinkBuilder interface {
	BaseURI() string
	ActivationURI(token string) string
	ConfirmationURI(token string) string
}

// Links builds URIs relative to a fixed base such as "https://example.com/".
type Links struct {
	Base             string
	ActivationPath   string
	ConfirmationPath string
}

// NewLinks returns a builder rooted at base. base must be an absolute URL.
func NewLinks(base, activationPath, confirmationPath string) Links {
	base = strings.TrimSpace(base)
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return Links{Base: base, ActivationPath: activationPath, ConfirmationPath: confirmationPath}
}

func (l Links) BaseURI() string { return l.Base }

func (l Links) ActivationURI(token string) string { return l.withToken(l.ActivationPath, token) }

func (l Links) ConfirmationURI(token string) string { return l.withToken(l.ConfirmationPath, token) }

func (l Links) withToken(path, token string) string {
	u, err := url.Parse(l.Base)
	if err != nil {
		return l.Base + strings.TrimPrefix(path, "/") + "?" + url.Values{"token": {token}}.Encode()
	}
	u = u.JoinPath(path)
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String()
}
