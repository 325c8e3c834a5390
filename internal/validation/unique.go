package validation

import "context"

// SupplierLookup são as consultas de existência que a validação de fornecedor precisa.
// excludingID igual a 0 não exclui nenhum registro.
type SupplierLookup interface {
	NameTaken(ctx context.Context, name string, excludingID int64) (bool, error)
	TaxIDTaken(ctx context.Context, taxID string, excludingID int64) (bool, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// ItemLookup é a consulta de existência que a validação de item precisa.
type ItemLookup interface {
	SKUTaken(ctx context.Context, sku string, excludingID int64) (bool, error)
}

// SupplierName acusa em "name" outro fornecedor com o mesmo nome, ignorando maiúsculas.
// O erro retornado é apenas de infraestrutura.
func (e Errors) SupplierName(ctx context.Context, l SupplierLookup, name string, excludingID int64) error {
	if name == "" || e.Has("name") {
		return nil
	}
	taken, err := l.NameTaken(ctx, name, excludingID)
	if err != nil {
		return err
	}
	if taken {
		e.Add("name", MsgSupplierNameTaken)
	}
	return nil
}

// SupplierTaxID acusa em "tax_id" outro fornecedor com o mesmo CNPJ.
func (e Errors) SupplierTaxID(ctx context.Context, l SupplierLookup, taxID *string, excludingID int64) error {
	if taxID == nil || *taxID == "" || e.Has("tax_id") {
		return nil
	}
	taken, err := l.TaxIDTaken(ctx, *taxID, excludingID)
	if err != nil {
		return err
	}
	if taken {
		e.Add("tax_id", MsgSupplierTaxIDTaken)
	}
	return nil
}

// ItemSKU acusa em "sku" outro item com o mesmo SKU (comparação exata).
func (e Errors) ItemSKU(ctx context.Context, l ItemLookup, sku string, excludingID int64) error {
	if sku == "" || e.Has("sku") {
		return nil
	}
	taken, err := l.SKUTaken(ctx, sku, excludingID)
	if err != nil {
		return err
	}
	if taken {
		e.Add("sku", MsgItemSKUTaken)
	}
	return nil
}

// SupplierReference acusa em "supplier" uma referência a fornecedor inexistente.
func (e Errors) SupplierReference(ctx context.Context, l SupplierLookup, id int64) error {
	exists, err := l.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		e.Add("supplier", MsgInvalidPK(id))
	}
	return nil
}
