package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/Popolzen/tinylink/internal/config"
	"github.com/Popolzen/tinylink/internal/model"
	"github.com/Popolzen/tinylink/internal/service/users"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Ключи контекста gin, которые выставляет middleware
const (
	OwnerIDKey    = "owner_id"
	ExternalIDKey = "external_id"
)

const cookieName = "user_id"

// validateToken проверяет подпись токена и возвращает внешний идентификатор
func validateToken(token, secretKey string) (string, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return "", false
	}
	externalID, signature := parts[0], parts[1]

	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(externalID))
	expectedSignature := mac.Sum(nil)

	// Декодируем полученную подпись из base64
	receivedSignature, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return "", false
	}

	// Сравниваем байты HMAC
	return externalID, hmac.Equal(receivedSignature, expectedSignature)
}

// signExternalID подписывает внешний идентификатор HMAC-SHA256
func signExternalID(externalID, secretKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(externalID))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return externalID + "." + signature
}

// AuthMiddleware извлекает подписанный токен из заголовка Authorization
// или cookie и резолвит его в внутренний id владельца через хранилище.
// Невалидный или незнакомый токен — не ошибка: запрос продолжается
// от имени анонимного владельца, решает уже конкретный хендлер.
func AuthMiddleware(cfg *config.Config, userService users.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			if cookie, err := c.Cookie(cookieName); err == nil {
				token = cookie
			}
		}

		externalID, valid := "", false
		if token != "" {
			externalID, valid = validateToken(token, cfg.SecretKey)
		}
		if !valid {
			// Новый посетитель: выдаем ему свежий идентификатор
			externalID = uuid.New().String()
		}

		signedValue := signExternalID(externalID, cfg.SecretKey)
		c.SetCookie(cookieName, signedValue, 3600*24*30, "/", "", cfg.EnableHTTPS, true)

		ownerID := model.AnonymousUserID
		if valid {
			if user, err := userService.GetByExternalID(c.Request.Context(), externalID); err == nil {
				ownerID = user.ID
			}
		}

		c.Set(ExternalIDKey, externalID)
		c.Set(OwnerIDKey, ownerID)

		c.Next()
	}
}

// SignToken отдает подписанный токен для внешнего идентификатора.
// Используется при регистрации, чтобы клиент получил валидный токен сразу.
func SignToken(cfg *config.Config, externalID string) string {
	return signExternalID(externalID, cfg.SecretKey)
}
