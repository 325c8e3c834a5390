// Package response padroniza a escrita de respostas JSON de sucesso e de erro.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	apperror "almoxarifado/internal/errors"
	"almoxarifado/internal/pkg/logger"
)

// TotalCountHeader carrega o total de registros das listagens, antes da paginação.
const TotalCountHeader = "X-Total-Count"

// JSON escreve data com o status informado. data nil gera corpo vazio (e.g., 204).
func JSON(w http.ResponseWriter, log logger.Logger, status int, data interface{}) {
	if data == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("Falha ao codificar JSON de resposta", err)
	}
}

// Error traduz err para o status e o corpo padronizados e registra o ocorrido.
func Error(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status, body := apperror.ResponseBody(err)
	_, category, _ := apperror.MapToHTTPStatus(err)

	if status >= http.StatusInternalServerError {
		log.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		log.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category),
			map[string]interface{}{"path": r.URL.Path, "method": r.Method})
	}

	JSON(w, log, status, body)
}
