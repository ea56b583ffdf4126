package server

import (
	"html/template"
	"net/http"
	"time"

	"gestao-compras/internal/config"
	"gestao-compras/internal/handlers"
	"gestao-compras/internal/middleware"
	"gestao-compras/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

func formatMoney(v decimal.Decimal) string {
	return "R$ " + v.StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func NewRouter(cfg *config.Config) *gin.Engine {
	handlers.Setup(cfg)

	r := gin.Default()

	r.Static("/static", "./web/static")

	r.SetFuncMap(template.FuncMap{
		"eq":       func(a, b interface{}) bool { return a == b },
		"dinheiro": formatMoney,
		"data":     formatDate,
	})
	r.LoadHTMLGlob("web/templates/*.html")

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("compras_session", store))

	r.Use(middleware.InjectUser())

	// HOME
	r.GET("/", handlers.IndexPage)

	// AUTH
	r.GET("/register", handlers.ShowRegister)
	r.POST("/register", handlers.Register)
	r.GET("/login", handlers.ShowLogin)
	r.POST("/login", middleware.LoginRateLimit(rate.Limit(1), 5), handlers.Login)
	r.GET("/logout", handlers.Logout)

	auth := r.Group("/")
	auth.Use(middleware.RequireAuth())

	// FORNECEDORES
	auth.GET("/fornecedores", handlers.ListFornecedores)
	auth.GET("/fornecedores/new",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.ShowNewFornecedor,
	)
	auth.POST("/fornecedores/new",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.CreateFornecedor,
	)
	auth.GET("/fornecedores/:id", handlers.ShowFornecedorDetail)
	auth.GET("/fornecedores/:id/edit",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.ShowEditFornecedor,
	)
	auth.POST("/fornecedores/:id/edit",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.UpdateFornecedor,
	)

	// DEPARTAMENTOS
	auth.GET("/departamentos", handlers.ListDepartamentos)
	auth.GET("/departamentos/new",
		middleware.RequireRole(models.RoleAdmin),
		handlers.ShowNewDepartamento,
	)
	auth.POST("/departamentos/new",
		middleware.RequireRole(models.RoleAdmin),
		handlers.CreateDepartamento,
	)

	// CONTRATOS
	auth.GET("/contratos", handlers.ListContratos)
	auth.GET("/contratos/new",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.ShowNewContrato,
	)
	auth.POST("/contratos/new",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.CreateContrato,
	)
	auth.GET("/contratos/:id", handlers.ShowContratoDetail)

	// tetos: edição gera histórico imutável
	auth.GET("/contratos/:id/limites",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.ShowEditContratoLimites,
	)
	auth.POST("/contratos/:id/limites",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.UpdateContratoLimites,
	)
	auth.POST("/contratos/:id/desativar",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.DeactivateContrato,
	)

	// REQUISIÇÕES
	auth.GET("/requisicoes", handlers.ListRequisicoes)
	auth.GET("/requisicoes/new",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor, models.RoleRequisitante),
		handlers.ShowNewRequisicao,
	)
	auth.POST("/requisicoes/new",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor, models.RoleRequisitante),
		handlers.CreateRequisicao,
	)
	auth.GET("/requisicoes/:id", handlers.ShowRequisicaoDetail)
	auth.POST("/requisicoes/:id/itens",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor, models.RoleRequisitante),
		handlers.AddRequisicaoItem,
	)
	auth.POST("/requisicoes/:id/status", handlers.ChangeRequisicaoStatus)
	auth.POST("/requisicoes/:id/concretizar",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.ConcretizarRequisicao,
	)
	auth.POST("/requisicoes/:id/valor",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.UpdateRequisicaoValor,
	)

	// CONFERÊNCIAS
	auth.GET("/conferencias",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor, models.RoleVisualizador),
		handlers.ListConferencias,
	)
	auth.GET("/conferencias/new",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.ShowNewConferencia,
	)
	auth.POST("/conferencias/new",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.CreateConferencia,
	)
	auth.GET("/conferencias/:id",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor, models.RoleVisualizador),
		handlers.ShowConferenciaDetail,
	)
	auth.POST("/conferencias/:id/pedidos",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.AddPedidoManual,
	)
	auth.POST("/conferencias/:id/pedidos/:pedido_id/delete",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.RemovePedidoManual,
	)
	auth.POST("/conferencias/:id/finalizar",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.FinalizarConferencia,
	)
	auth.POST("/conferencias/:id/delete",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.DeleteConferencia,
	)

	// PATRIMÔNIO
	auth.GET("/patrimonio",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor, models.RoleVisualizador),
		handlers.ListIntegracoes,
	)
	auth.POST("/patrimonio/processar",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor),
		handlers.ProcessarIntegracoesPendentes,
	)

	// RELATÓRIOS
	auth.GET("/relatorios/contratos",
		middleware.RequireRole(models.RoleAdmin, models.RoleGestor, models.RoleVisualizador),
		handlers.RelatorioContratos,
	)

	// AUDITORIA
	auth.GET("/audit",
		middleware.RequireRole(models.RoleAdmin, models.RoleVisualizador),
		handlers.ListAuditLogs,
	)

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r
}
