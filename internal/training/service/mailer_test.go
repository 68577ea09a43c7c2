package service

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcceptLinkRoundTrips(t *testing.T) {
	m := &LogMailer{BaseURL: "http://localhost:3000", AppTitle: "Training Platform"}

	link := m.acceptLink("tag+alias@example.com", "0a/1b=2c")

	u, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, "/invitations/accept", u.Path)
	require.Equal(t, "tag+alias@example.com", u.Query().Get("email"))
	require.Equal(t, "0a/1b=2c", u.Query().Get("token"))
}
