package domain

import (
	"strings"
	"time"
)

// Supplier representa um fornecedor (vendor) de itens do almoxarifado.
type Supplier struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name" validate:"required,max=255"`
	Contact   string    `json:"contact" db:"contact" validate:"max=255"`
	TaxID     *string   `json:"tax_id" db:"tax_id" validate:"omitempty,max=18"` // CNPJ, único quando presente
	Phone     string    `json:"phone" db:"phone" validate:"omitempty,phone"`
	Email     string    `json:"email" db:"email" validate:"omitempty,email,max=254"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SupplierInput é o payload de criação/atualização de fornecedor.
// Campos nil não foram enviados e, numa atualização parcial, mantêm o valor atual.
type SupplierInput struct {
	Name    *string          `json:"name"`
	Contact *string          `json:"contact"`
	TaxID   Optional[string] `json:"tax_id"`
	Phone   *string          `json:"phone"`
	Email   *string          `json:"email"`
}

// Missing lista os campos obrigatórios ausentes no payload.
func (in SupplierInput) Missing() []string {
	if in.Name == nil {
		return []string{"name"}
	}
	return nil
}

// ApplyTo copia para s apenas os campos presentes no payload.
func (in SupplierInput) ApplyTo(s *Supplier) {
	if in.Name != nil {
		s.Name = strings.TrimSpace(*in.Name)
	}
	if in.Contact != nil {
		s.Contact = strings.TrimSpace(*in.Contact)
	}
	if in.TaxID.Set {
		s.TaxID = nil
		if v := strings.TrimSpace(in.TaxID.Value); !in.TaxID.Null && v != "" {
			s.TaxID = &v
		}
	}
	if in.Phone != nil {
		s.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Email != nil {
		s.Email = strings.TrimSpace(*in.Email)
	}
}

// SupplierDeleteMode define o que acontece com os itens quando o fornecedor é removido.
type SupplierDeleteMode string

const (
	// DeleteModeNullify mantém os itens e limpa a referência ao fornecedor.
	DeleteModeNullify SupplierDeleteMode = "nullify"
	// DeleteModeCascade remove os itens junto com o fornecedor; todo item exige fornecedor.
	DeleteModeCascade SupplierDeleteMode = "cascade"
)

// ParseSupplierDeleteMode valida o valor vindo da configuração.
func ParseSupplierDeleteMode(v string) (SupplierDeleteMode, bool) {
	switch SupplierDeleteMode(strings.ToLower(strings.TrimSpace(v))) {
	case DeleteModeNullify, "":
		return DeleteModeNullify, true
	case DeleteModeCascade:
		return DeleteModeCascade, true
	}
	return "", false
}
