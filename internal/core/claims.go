package core

import "github.com/golang-jwt/jwt/v4"

const RoleAdmin = "MMEAdmin"

type AdminClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
