package middleware

import (
	"gestao-compras/internal/database"
	"gestao-compras/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// InjectUser carrega o usuário da sessão para o contexto da requisição.
// Sessão apontando para usuário apagado passa sem CurrentUser, e o
// template trata como deslogado.
func InjectUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if uidRaw := sess.Get("user_id"); uidRaw != nil {
			if uid, ok := uidRaw.(uint); ok && uid > 0 {
				var user models.User
				if err := database.DB.First(&user, uid).Error; err == nil {
					c.Set("CurrentUser", user)
				}
			}
		}

		c.Next()
	}
}
