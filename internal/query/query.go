// Package query traduz os parâmetros de listagem (search, filtros, ordering, paginação)
// em uma especificação explícita e a compila para SQL a partir de uma lista branca por entidade.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	apperror "almoxarifado/internal/errors"
)

// Parâmetros reservados da listagem.
const (
	ParamSearch   = "search"
	ParamOrdering = "ordering"
	ParamPage     = "page"
	ParamPageSize = "page_size"

	MaxPageSize = 100
)

// FieldType define como o valor de um filtro é convertido.
type FieldType int

const (
	String FieldType = iota
	Int
)

// Filter é um filtro de igualdade exposto como ?param=valor.
type Filter struct {
	Param  string
	Column string
	Type   FieldType
}

// Order é um critério de ordenação já validado contra a lista branca.
type Order struct {
	Field string
	Desc  bool
}

// Condition é um filtro de igualdade com o valor já convertido.
type Condition struct {
	Column string
	Value  interface{}
}

// Schema é a lista branca de busca, filtros e ordenação de uma entidade.
type Schema struct {
	Search   []string          // colunas pesquisadas com ILIKE
	Filters  []Filter          // filtros de igualdade, na ordem em que serão aplicados
	Ordering map[string]string // campo público -> coluna
	Default  []Order
	IDColumn string // desempate final, sempre ascendente
}

// Spec é a consulta de listagem independente de armazenamento.
type Spec struct {
	Search     string
	Conditions []Condition
	Ordering   []Order
	Page       int
	PageSize   int // 0 significa sem paginação
}

// Parse monta a Spec a partir da query string. Parâmetros desconhecidos são ignorados.
func (sc Schema) Parse(values url.Values) (Spec, error) {
	spec := Spec{Search: strings.TrimSpace(values.Get(ParamSearch))}
	fieldErrs := map[string][]string{}

	for _, f := range sc.Filters {
		// Filtro exato: o valor vai como veio, sem aparar espaços.
		raw := values.Get(f.Param)
		if raw == "" {
			continue
		}
		switch f.Type {
		case Int:
			n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				fieldErrs[f.Param] = append(fieldErrs[f.Param], "Select a valid choice. That choice is not one of the available choices.")
				continue
			}
			spec.Conditions = append(spec.Conditions, Condition{Column: f.Column, Value: n})
		default:
			spec.Conditions = append(spec.Conditions, Condition{Column: f.Column, Value: raw})
		}
	}

	spec.Ordering = sc.parseOrdering(values.Get(ParamOrdering))

	if raw := strings.TrimSpace(values.Get(ParamPageSize)); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			fieldErrs[ParamPageSize] = append(fieldErrs[ParamPageSize], "A valid integer is required.")
		} else {
			spec.PageSize = min(size, MaxPageSize)
			spec.Page = 1
		}
	}
	if raw := strings.TrimSpace(values.Get(ParamPage)); raw != "" && spec.PageSize > 0 {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			fieldErrs[ParamPage] = append(fieldErrs[ParamPage], "Invalid page.")
		} else {
			spec.Page = page
		}
	}

	if len(fieldErrs) > 0 {
		return Spec{}, apperror.NewFieldsError(fieldErrs)
	}
	return spec, nil
}

func (sc Schema) parseOrdering(raw string) []Order {
	var orders []Order
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		field := strings.TrimPrefix(part, "-")
		if _, ok := sc.Ordering[field]; !ok || seen[field] {
			continue
		}
		seen[field] = true
		orders = append(orders, Order{Field: field, Desc: desc})
	}
	if len(orders) == 0 {
		return append([]Order(nil), sc.Default...)
	}
	return orders
}

// SQL é o resultado da compilação de uma Spec.
type SQL struct {
	Where   string // inclui "WHERE", ou vazio
	Args    []interface{}
	OrderBy string // inclui "ORDER BY"
	Limit   int    // 0 significa sem limite
	Offset  int
}

// Compile gera os fragmentos SQL; os placeholders começam em $1.
func (sc Schema) Compile(spec Spec) SQL {
	var (
		clauses []string
		args    []interface{}
	)

	if spec.Search != "" && len(sc.Search) > 0 {
		args = append(args, "%"+EscapeLike(spec.Search)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		ors := make([]string, 0, len(sc.Search))
		for _, col := range sc.Search {
			ors = append(ors, fmt.Sprintf("%s ILIKE %s", col, placeholder))
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}

	for _, c := range spec.Conditions {
		args = append(args, c.Value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", c.Column, len(args)))
	}

	out := SQL{Args: args}
	if len(clauses) > 0 {
		out.Where = "WHERE " + strings.Join(clauses, " AND ")
	}

	ordering := spec.Ordering
	if len(ordering) == 0 {
		ordering = sc.Default
	}
	terms := make([]string, 0, len(ordering)+1)
	for _, o := range ordering {
		col, ok := sc.Ordering[o.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		terms = append(terms, col+" "+dir)
	}
	terms = append(terms, sc.IDColumn+" ASC")
	out.OrderBy = "ORDER BY " + strings.Join(terms, ", ")

	if spec.PageSize > 0 {
		out.Limit = spec.PageSize
		out.Offset = (max(spec.Page, 1) - 1) * spec.PageSize
	}
	return out
}

// EscapeLike escapa os metacaracteres do LIKE para busca literal.
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
