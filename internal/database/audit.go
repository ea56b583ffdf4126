package database

import "gestao-compras/internal/models"

// Entidades rastreadas no trilho de auditoria. Toda escrita de handler
// passa por aqui com uma destas, nunca com string solta.
const (
	AuditFornecedor   = "fornecedor"
	AuditDepartamento = "departamento"
	AuditContrato     = "contrato"
	AuditRequisicao   = "requisicao"
	AuditConferencia  = "conferencia"
	AuditPatrimonio   = "patrimonio"
	AuditUsuario      = "usuario"
)

// CreateAuditLog grava uma linha no trilho. Falha de gravação é engolida:
// auditoria nunca derruba a operação que está sendo auditada.
func CreateAuditLog(userID uint, entity string, entityID uint, action, details string) {
	if DB == nil {
		return
	}
	record := models.AuditLog{
		UserID:   userID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Details:  details,
	}
	_ = DB.Create(&record).Error
}
