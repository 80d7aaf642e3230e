package registration

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinksBuildAbsoluteURIs(t *testing.T) {
	links := NewLinks("https://signup.example.com", "/api/registration/activate", "/api/registration/confirm")

	require.Equal(t, "https://signup.example.com/", links.BaseURI())
	require.Equal(t, "https://signup.example.com/api/registration/activate?token=abc123", links.ActivationURI("abc123"))
	require.Equal(t, "https://signup.example.com/api/registration/confirm?token=xyz", links.ConfirmationURI("xyz"))
}

func TestLinksKeepBasePathPrefix(t *testing.T) {
	links := NewLinks("https://example.com/accounts/", "api/registration/activate", "api/registration/confirm")
	require.Equal(t, "https://example.com/accounts/api/registration/activate?token=t", links.ActivationURI("t"))
}

func TestLinksEscapeToken(t *testing.T) {
	links := NewLinks("http://localhost:8000/", "/activate", "/confirm")
	require.Equal(t, "http://localhost:8000/confirm?token=a+b%26c", links.ConfirmationURI("a b&c"))
}
