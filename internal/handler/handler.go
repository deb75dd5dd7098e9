package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Popolzen/tinylink/internal/audit"
	"github.com/Popolzen/tinylink/internal/config"
	"github.com/Popolzen/tinylink/internal/middleware/auth"
	"github.com/Popolzen/tinylink/internal/model"
	"github.com/Popolzen/tinylink/internal/service/links"
	"github.com/Popolzen/tinylink/internal/service/users"
	"github.com/gin-gonic/gin"
)

// Pinger умеет проверять доступность хранилища
type Pinger interface {
	Ping() error
}

// linkResponse — ссылка плюс ее полный короткий адрес
type linkResponse struct {
	model.Link
	ShortURL string `json:"short_url"`
}

func newLinkResponse(link model.Link, cfg *config.Config) linkResponse {
	return linkResponse{
		Link:     link,
		ShortURL: cfg.GetBaseURL() + "/" + link.Code,
	}
}

// statusFromError переводит ошибки ядра в HTTP статусы.
// Один маппинг на все хендлеры — у клиента одна форма ошибок
// независимо от того, какой слой поймал проблему.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrCodeTaken), errors.Is(err, model.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, model.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFromError(err), gin.H{"message": err.Error()})
}

// ownerID достает внутренний id владельца, положенный auth middleware
func ownerID(c *gin.Context) int {
	if v, ok := c.Get(auth.OwnerIDKey); ok {
		if id, ok := v.(int); ok {
			return id
		}
	}
	return model.AnonymousUserID
}

// CreateLinkHandler создает короткую ссылку
func CreateLinkHandler(linkService links.LinkService, cfg *config.Config, auditPub *audit.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.LinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Неправильное тело запроса"})
			return
		}

		active := true
		if req.Active != nil {
			active = *req.Active
		}

		owner := ownerID(c)
		link, err := linkService.Allocate(c.Request.Context(), owner, req.URL, req.Code, active)
		if err != nil {
			abortWithError(c, err)
			return
		}

		auditPub.Publish(audit.NewEvent(audit.ActionAllocate, owner, link.Code, link.Destination))

		c.JSON(http.StatusCreated, newLinkResponse(link, cfg))
	}
}

// ListLinksHandler возвращает все ссылки владельца
func ListLinksHandler(linkService links.LinkService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := linkService.List(c.Request.Context(), ownerID(c))
		if err != nil {
			abortWithError(c, err)
			return
		}

		result := make([]linkResponse, 0, len(list))
		for _, link := range list {
			result = append(result, newLinkResponse(link, cfg))
		}
		c.JSON(http.StatusOK, result)
	}
}

// UpdateLinkHandler меняет destination, код или активность ссылки
func UpdateLinkHandler(linkService links.LinkService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		linkID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Невалидный id ссылки"})
			return
		}

		var req model.LinkUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Неправильное тело запроса"})
			return
		}

		link, err := linkService.Update(c.Request.Context(), ownerID(c), linkID, model.LinkChanges{
			Destination: req.URL,
			Code:        req.Code,
			IsActive:    req.Active,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, newLinkResponse(link, cfg))
	}
}

// DeleteLinkHandler удаляет ссылку владельца
func DeleteLinkHandler(linkService links.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		linkID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Невалидный id ссылки"})
			return
		}

		if err := linkService.Delete(c.Request.Context(), ownerID(c), linkID); err != nil {
			abortWithError(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// RedirectHandler перенаправляет по короткой ссылке
func RedirectHandler(linkService links.LinkService, auditPub *audit.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")

		destination, err := linkService.Resolve(c.Request.Context(), code)
		if err != nil {
			abortWithError(c, err)
			return
		}

		auditPub.Publish(audit.NewEvent(audit.ActionFollow, ownerID(c), code, destination))

		c.Redirect(http.StatusTemporaryRedirect, destination)
	}
}

// GetByCodeHandler отдает ссылку по коду без редиректа.
// Тоже публичный путь перехода, поэтому тоже считает клик.
func GetByCodeHandler(linkService links.LinkService, auditPub *audit.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")

		destination, err := linkService.Resolve(c.Request.Context(), code)
		if err != nil {
			abortWithError(c, err)
			return
		}

		auditPub.Publish(audit.NewEvent(audit.ActionFollow, ownerID(c), code, destination))

		c.JSON(http.StatusOK, gin.H{"short_code": code, "original_url": destination})
	}
}

// StatsHandler возвращает агрегаты по ссылкам владельца
func StatsHandler(linkService links.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := linkService.Stats(c.Request.Context(), ownerID(c))
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}

// InternalStatsHandler — сервисные итоги, доступен только из доверенной подсети
func InternalStatsHandler(linkService links.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		linksCount, usersCount, err := linkService.Totals(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, model.Totals{Links: linksCount, Users: usersCount})
	}
}

// RegisterHandler создает пользователя для текущего внешнего идентификатора
func RegisterHandler(userService users.UserService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Неправильное тело запроса"})
			return
		}

		externalID := c.GetString(auth.ExternalIDKey)
		user, err := userService.Register(c.Request.Context(), externalID, req.Name, req.Email)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"user":  user,
			"token": auth.SignToken(cfg, user.ExternalID),
		})
	}
}

// MeHandler возвращает пользователя текущего токена
func MeHandler(userService users.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		externalID := c.GetString(auth.ExternalIDKey)

		user, err := userService.GetByExternalID(c.Request.Context(), externalID)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, user)
	}
}

// PingHandler проверяет подключение к базе данных
func PingHandler(p Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p == nil {
			c.String(http.StatusInternalServerError, "БД не сконфигурирована")
			return
		}
		if err := p.Ping(); err != nil {
			c.String(http.StatusInternalServerError, "БД недоступна")
			return
		}
		c.Status(http.StatusOK)
	}
}
