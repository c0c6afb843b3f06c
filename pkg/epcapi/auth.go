package epcapi

import (
	"encoding/base64"
	"fmt"
)

// Credentials identify an EPC open-data account. The API uses basic auth
// with the account email as username and the issued key as password.
type Credentials struct {
	Email string
	Key   string
}

// Configured reports whether both halves of the credential are present.
func (c Credentials) Configured() bool {
	return c.Email != "" && c.Key != ""
}

// Header returns the Authorization header value.
func (c Credentials) Header() string {
	raw := fmt.Sprintf("%s:%s", c.Email, c.Key)
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}
