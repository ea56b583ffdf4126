package models

import "gorm.io/gorm"

// Departamento é uma secretaria ou setor da prefeitura.
// Requisições sempre têm um departamento solicitante e um recebedor.
type Departamento struct {
	gorm.Model
	Nome  string `gorm:"size:255;not null"`
	Sigla string `gorm:"size:20;uniqueIndex"` // SEMED, SEMUS, GAB etc.
}
