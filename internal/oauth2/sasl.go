package oauth2

import "github.com/emersion/go-sasl"

// NewXOAUTH2Client returns a SASL client for the XOAUTH2 mechanism.
func NewXOAUTH2Client(username, token string) sasl.Client {
	return &xoauth2Client{username: username, token: token}
}

type xoauth2Client struct {
	username string
	token    string
}

func (c *xoauth2Client) Start() (string, []byte, error) {
	// Initial response: user=<username>\x01auth=Bearer <token>\x01\x01
	ir := []byte("user=" + c.username + "\x01auth=Bearer " + c.token + "\x01\x01")
	return "XOAUTH2", ir, nil
}

func (c *xoauth2Client) Next(challenge []byte) ([]byte, error) {
	// Single round trip; a challenge means the server rejected us.
	return nil, sasl.ErrUnexpectedServerChallenge
}
