package subnet

import (
	"log"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TrustedSubnetMiddleware пускает к внутреннему API только клиентов
// из доверенной подсети. IP берется из заголовка X-Real-IP.
// Пустая или невалидная подсеть закрывает доступ всем.
func TrustedSubnetMiddleware(trustedSubnet string) gin.HandlerFunc {
	if trustedSubnet == "" {
		return func(c *gin.Context) {
			log.Println("Доступ запрещен: доверенная подсеть не настроена")
			c.AbortWithStatus(http.StatusForbidden)
		}
	}

	// Парсим CIDR один раз при создании middleware
	_, ipNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		log.Printf("Ошибка парсинга CIDR '%s': %v", trustedSubnet, err)
		return func(c *gin.Context) {
			c.AbortWithStatus(http.StatusForbidden)
		}
	}

	return func(c *gin.Context) {
		realIP := c.GetHeader("X-Real-IP")
		if realIP == "" {
			log.Println("Доступ запрещен: заголовок X-Real-IP отсутствует")
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		ip := net.ParseIP(realIP)
		if ip == nil || !ipNet.Contains(ip) {
			log.Printf("Доступ запрещен: IP '%s' вне доверенной подсети %s", realIP, trustedSubnet)
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		c.Next()
	}
}
