package exts

import (
	"errors"
	"fmt"
	"strings"

	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"git.solsynth.dev/hypernet/chat/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

var ErrInvalidToken = errors.New("invalid token")

// UserClaims are issued by the identity provider. The subject is the
// account id.
type UserClaims struct {
	Name   string  `json:"name"`
	Nick   string  `json:"nick"`
	Avatar *string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

func ParseUserToken(tk string) (UserClaims, error) {
	var claims UserClaims
	token, err := jwt.ParseWithClaims(tk, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method)
		}
		return []byte(viper.GetString("security.jwt_secret")), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return claims, err
	} else if !token.Valid || len(claims.Subject) == 0 {
		return claims, ErrInvalidToken
	}
	return claims, nil
}

func tokenFromRequest(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("tk")
}

// AuthMiddleware resolves the bearer token, or the tk query parameter used by
// websocket clients, into the local account. Anonymous requests pass through.
func AuthMiddleware(c *fiber.Ctx) error {
	tk := tokenFromRequest(c)
	if len(tk) == 0 {
		return c.Next()
	}

	claims, err := ParseUserToken(tk)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, fmt.Sprintf("invalid auth token: %v", err))
	}

	account, err := services.LinkAccount(models.Account{
		ID:     claims.Subject,
		Name:   claims.Name,
		Nick:   claims.Nick,
		Avatar: claims.Avatar,
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("unable to link account: %v", err))
	}

	c.Locals("user", account)
	return c.Next()
}

func EnsureAuthenticated(c *fiber.Ctx) error {
	if _, ok := c.Locals("user").(models.Account); !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "you need sign in first")
	}
	return nil
}
