package query

// ItemSchema cobre a listagem de itens. As colunas usam os aliases i (itens) e s (fornecedores).
var ItemSchema = Schema{
	Search: []string{"i.name", "i.description", "i.sku", "s.name"},
	Filters: []Filter{
		{Param: "location", Column: "i.location", Type: String},
		{Param: "sku", Column: "i.sku", Type: String},
		{Param: "supplier", Column: "i.supplier_id", Type: Int},
		{Param: "category", Column: "i.category", Type: String},
	},
	Ordering: map[string]string{
		"name":       "i.name",
		"quantity":   "i.quantity",
		"sku":        "i.sku",
		"unit_price": "i.unit_price",
		"created_at": "i.created_at",
		"updated_at": "i.updated_at",
	},
	Default:  []Order{{Field: "name"}},
	IDColumn: "i.id",
}

// SupplierSchema cobre a listagem de fornecedores.
var SupplierSchema = Schema{
	Search: []string{"name", "contact"},
	Filters: []Filter{
		{Param: "tax_id", Column: "tax_id", Type: String},
	},
	Ordering: map[string]string{
		"name":       "name",
		"created_at": "created_at",
	},
	Default:  []Order{{Field: "name"}},
	IDColumn: "id",
}
