package auth

import (
	"encoding/json"
	"strconv"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// Claims is the subset of the access token payload the app reads.
//
// The payload is decoded WITHOUT verifying the signature: the values are informational only
// (display and request routing), trust stays with the server which validates the token on
// every call. Do not use them for authorization decisions.
type Claims struct {
	ConsumerKey null.String
	UserID      null.String
	UserType    null.String
	SchoolID    null.String
	SessionID   null.String
	IssuedAt    null.String
	AppName     null.String
	Exp         null.String
	TTL         null.Int64
}

// DecodeClaims reads the payload of an access token.
func DecodeClaims(token string) (Claims, error) {
	parser := jwt.Parser{UseJSONNumber: true}
	mc := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, mc); err != nil {
		return Claims{}, errors.Wrap(err, "decode access token")
	}

	claims := Claims{
		ConsumerKey: claimString(mc, "consumerKey"),
		UserID:      claimString(mc, "userId"),
		UserType:    claimString(mc, "userType"),
		SchoolID:    claimString(mc, "schoolId"),
		SessionID:   claimString(mc, "sessionId"),
		IssuedAt:    claimString(mc, "issuedAt"),
		AppName:     claimString(mc, "appName"),
		Exp:         claimString(mc, "exp"),
	}
	if n, ok := mc["ttl"].(json.Number); ok {
		if ttl, err := n.Int64(); err == nil {
			claims.TTL = null.Int64From(ttl)
		}
	}
	return claims, nil
}

// claimString reads string and numeric claims alike.
func claimString(mc jwt.MapClaims, key string) null.String {
	switch v := mc[key].(type) {
	case string:
		return null.StringFrom(v)
	case json.Number:
		return null.StringFrom(v.String())
	}
	return null.String{}
}

// SchoolIDInt is the school id as a number, if it is one.
func (c Claims) SchoolIDInt() null.Int {
	if !c.SchoolID.Valid {
		return null.Int{}
	}
	id, err := strconv.Atoi(c.SchoolID.String)
	if err != nil {
		return null.Int{}
	}
	return null.IntFrom(id)
}
