package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Item representa um item de estoque/catálogo do almoxarifado.
// Na leitura, Supplier traz o fornecedor completo (ou null); SupplierID é apenas a coluna.
type Item struct {
	ID            int64               `json:"id" db:"id"`
	SKU           string              `json:"sku" db:"sku" validate:"required,max=64"` // Stock Keeping Unit, único e sensível a maiúsculas
	Name          string              `json:"name" db:"name" validate:"required,max=255"`
	Description   string              `json:"description" db:"description"`
	Quantity      int                 `json:"quantity" db:"quantity"`
	Location      string              `json:"location" db:"location" validate:"max=128"`
	UnitOfMeasure string              `json:"unit_of_measure" db:"unit_of_measure" validate:"max=2"`
	Category      string              `json:"category" db:"category" validate:"max=100"`
	UnitPrice     decimal.NullDecimal `json:"unit_price" db:"unit_price" validate:"-"`
	SupplierID    *int64              `json:"-" db:"supplier_id"`
	Supplier      *Supplier           `json:"supplier" db:"-" validate:"-"`
	CreatedAt     time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" db:"updated_at"`
}

// ItemInput é o payload de criação/atualização de item.
// O fornecedor pode vir por id (supplier_id) ou embutido (supplier), nunca ambos.
type ItemInput struct {
	SKU           *string                   `json:"sku"`
	Name          *string                   `json:"name"`
	Description   *string                   `json:"description"`
	Quantity      *int                      `json:"quantity"`
	Location      *string                   `json:"location"`
	UnitOfMeasure *string                   `json:"unit_of_measure"`
	Category      *string                   `json:"category"`
	UnitPrice     Optional[decimal.Decimal] `json:"unit_price"`
	SupplierID    Optional[int64]           `json:"supplier_id"`
	Supplier      Optional[SupplierInput]   `json:"supplier"`
}

// Missing lista os campos obrigatórios ausentes no payload, na ordem do contrato.
func (in ItemInput) Missing() []string {
	var missing []string
	if in.SKU == nil {
		missing = append(missing, "sku")
	}
	if in.Name == nil {
		missing = append(missing, "name")
	}
	return missing
}

// ApplyTo copia para it os campos escalares presentes no payload.
// A referência ao fornecedor é resolvida à parte, via SupplierRef.
func (in ItemInput) ApplyTo(it *Item) {
	if in.SKU != nil {
		it.SKU = strings.TrimSpace(*in.SKU)
	}
	if in.Name != nil {
		it.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		it.Description = *in.Description
	}
	if in.Quantity != nil {
		it.Quantity = *in.Quantity
	}
	if in.Location != nil {
		it.Location = strings.TrimSpace(*in.Location)
	}
	if in.UnitOfMeasure != nil {
		it.UnitOfMeasure = strings.TrimSpace(*in.UnitOfMeasure)
	}
	if in.Category != nil {
		it.Category = strings.TrimSpace(*in.Category)
	}
	if in.UnitPrice.Set {
		it.UnitPrice = decimal.NullDecimal{Decimal: in.UnitPrice.Value, Valid: !in.UnitPrice.Null}
	}
}

// SupplierRefKind identifica a forma como o item referencia o fornecedor.
type SupplierRefKind int

const (
	SupplierRefNone   SupplierRefKind = iota // nada enviado: mantém o atual
	SupplierRefClear                         // null explícito: remove a referência
	SupplierRefByID                          // supplier_id existente
	SupplierRefInline                        // objeto embutido: get-or-create
)

// SupplierRef é a variante já resolvida do fornecedor enviado no payload.
type SupplierRef struct {
	Kind   SupplierRefKind
	ID     int64
	Inline SupplierInput
}

// SupplierRef resolve supplier_id/supplier em uma única variante.
// ok é false quando os dois foram enviados com valor.
func (in ItemInput) SupplierRef() (ref SupplierRef, ok bool) {
	if in.SupplierID.Present() && in.Supplier.Present() {
		return SupplierRef{}, false
	}
	switch {
	case in.SupplierID.Present():
		return SupplierRef{Kind: SupplierRefByID, ID: in.SupplierID.Value}, true
	case in.Supplier.Present():
		return SupplierRef{Kind: SupplierRefInline, Inline: in.Supplier.Value}, true
	case in.SupplierID.Set || in.Supplier.Set:
		return SupplierRef{Kind: SupplierRefClear}, true
	}
	return SupplierRef{Kind: SupplierRefNone}, true
}
