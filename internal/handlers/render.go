package handlers

import (
	"time"

	"gestao-compras/internal/config"
	"gestao-compras/internal/models"
	"gestao-compras/internal/patrimonio"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

var (
	cfg           *config.Config
	patrimonioSvc *patrimonio.Service
)

// Setup guarda as dependências compartilhadas pelos handlers.
func Setup(c *config.Config) {
	cfg = c
	patrimonioSvc = &patrimonio.Service{
		Cliente:     patrimonio.NovoClienteSimulado(c.PatrimonioTaxaSucesso, time.Now().UnixNano()),
		ValorMinimo: c.PatrimonioValorMinimo,
		Lote:        c.PatrimonioLote,
	}
}

// render é o wrapper sobre c.HTML que injeta o CurrentUser em todo template.
func render(c *gin.Context, status int, tmpl string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}

	// usuário colocado no contexto pelo middleware.InjectUser
	if uVal, ok := c.Get("CurrentUser"); ok {
		switch u := uVal.(type) {
		case models.User:
			data["CurrentUser"] = u
			data["CurrentUsername"] = u.Username
			data["CurrentUserRole"] = u.Role
		case *models.User:
			data["CurrentUser"] = u
			data["CurrentUsername"] = u.Username
			data["CurrentUserRole"] = u.Role
		}
	}

	c.HTML(status, tmpl, data)
}

func currentUserID(c *gin.Context) uint {
	sess := sessions.Default(c)
	if uid, ok := sess.Get("user_id").(uint); ok {
		return uid
	}
	return 0
}

func currentRole(c *gin.Context) models.UserRole {
	sess := sessions.Default(c)
	roleStr, _ := sess.Get("role").(string)
	return models.UserRole(roleStr)
}
