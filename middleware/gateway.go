package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// GatewayCallbackAuth verifies the X-VERIFY checksum on payment callbacks:
// sha256(base64 body + salt key) + "###" + salt index. Skipped in
// sandbox/dev mode. The raw body is restored for the handler.
func GatewayCallbackAuth() gin.HandlerFunc {
	saltKey := os.Getenv("GATEWAY_SALT_KEY")
	if saltKey == "" {
		panic("GATEWAY_SALT_KEY is not set")
	}
	saltIndex := os.Getenv("GATEWAY_SALT_INDEX")
	if saltIndex == "" {
		saltIndex = "1"
	}

	mode := strings.ToLower(os.Getenv("GATEWAY_MODE"))

	return func(c *gin.Context) {
		if mode == "sandbox" || mode == "dev" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read callback body"})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		provided := c.GetHeader("X-VERIFY")
		if provided == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "missing X-VERIFY checksum"})
			c.Abort()
			return
		}

		sum := sha256.Sum256(append(body, []byte(saltKey)...))
		calculated := hex.EncodeToString(sum[:]) + "###" + saltIndex

		if !strings.EqualFold(calculated, provided) {
			fmt.Println("Gateway callback checksum mismatch, rejecting")
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid callback checksum"})
			c.Abort()
			return
		}

		c.Next()
	}
}
