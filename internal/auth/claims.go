package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the only supported bearer-token claims shape for this service.
// Subject carries the stable user id; the profile fields are optional and
// feed the call record's display metadata.
type Claims struct {
	jwt.RegisteredClaims

	Name       string `json:"name,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Email      string `json:"email,omitempty"`
}
