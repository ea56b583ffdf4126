package middleware

import (
	"net/http"

	"gestao-compras/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// RequireAuth manda para o login quem chega sem sessão.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		if sess.Get("user_id") == nil {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole restringe a rota aos perfis listados. Sessão sem perfil
// gravado é tratada como sessão inválida, não como perfil sem acesso.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	permitidos := map[models.UserRole]struct{}{}
	for _, r := range roles {
		permitidos[r] = struct{}{}
	}

	return func(c *gin.Context) {
		sess := sessions.Default(c)
		roleStr, ok := sess.Get("role").(string)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		if _, ok := permitidos[models.UserRole(roleStr)]; !ok {
			c.String(http.StatusForbidden, "Acesso negado para o seu perfil")
			c.Abort()
			return
		}
		c.Next()
	}
}
