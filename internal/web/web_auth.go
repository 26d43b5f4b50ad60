package web

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const authRealm = "pugblog"

// WriteAuthRequired middleware guards routes that change posts with HTTP basic auth
func (s *WebServer) WriteAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, password, ok := c.Request.BasicAuth()
		if ok &&
			subtle.ConstantTimeCompare([]byte(user), []byte(s.Config.AdminUser)) == 1 &&
			CheckPassword(password, s.Config.AdminPasswordHash) {
			c.Set("user", user)
			c.Next()
			return
		}
		if ok {
			log.Warn().Str("user", user).Str("client_ip", c.ClientIP()).Str("path", c.Request.URL.Path).Msg("basic auth failed")
		}
		c.Header("WWW-Authenticate", `Basic realm="`+authRealm+`", charset="UTF-8"`)
		c.String(http.StatusUnauthorized, "Unauthorized")
		c.Abort()
	}
}

// HashPassword creates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword checks if password matches hash
func CheckPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ValidatePassword validates password requirements
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters long")
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > 72 {
		return fmt.Errorf("password must be 72 bytes or fewer")
	}
	return nil
}
