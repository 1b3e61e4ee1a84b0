package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-classroom/internal/submission"
)

var errNoToken = errors.New("LMS_API_TOKEN is not set")

type identity struct {
	UserID uint
	Role   submission.Role
}

// identityFromToken reads the caller's id and role from the access token.
// The signature is not checked; the API does that on every request.
func identityFromToken(token string) (identity, error) {
	if token == "" {
		return identity{}, errNoToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return identity{}, fmt.Errorf("failed to read token: %w", err)
	}

	who := identity{}
	if role, ok := claims["role"].(string); ok {
		who.Role = submission.ParseRole(role)
	}
	switch sub := claims["sub"].(type) {
	case string:
		if id, err := strconv.ParseUint(sub, 10, 64); err == nil {
			who.UserID = uint(id)
		}
	case float64:
		who.UserID = uint(sub)
	}
	return who, nil
}
