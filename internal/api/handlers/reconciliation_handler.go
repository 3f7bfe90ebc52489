package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"reconciliation-service/internal/api/responses"
	"reconciliation-service/internal/core/reconciliation"
	"reconciliation-service/internal/core/workbook"
	"reconciliation-service/internal/domain"

	"github.com/gin-gonic/gin"
)

// ReconciliationHandler lida com as requisições de conciliação.
type ReconciliationHandler struct {
	service   reconciliation.Service
	maxUpload int64
}

// NewReconciliationHandler cria um novo handler de conciliação. maxUpload
// limits the whole request body, in bytes; zero disables the limit.
func NewReconciliationHandler(service reconciliation.Service, maxUpload int64) *ReconciliationHandler {
	return &ReconciliationHandler{service: service, maxUpload: maxUpload}
}

// requestError carries the HTTP status a bad upload should produce.
type requestError struct {
	code    int
	message string
	err     error
}

func (e *requestError) Error() string { return e.message }

var allowedExtensions = map[string]bool{".xlsx": true, ".xls": true, ".csv": true}

// HandleReconcile concilia o extrato com o relatório e devolve o resultado em JSON.
func (h *ReconciliationHandler) HandleReconcile(c *gin.Context) {
	in, ok := h.readInput(c)
	if !ok {
		return
	}

	export, err := strconv.ParseBool(c.DefaultPostForm("export", "false"))
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Valor inválido para export")
		return
	}
	in.Export = export

	out, err := h.service.Reconcile(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	responses.Success(c, out, "Conciliação concluída")
}

// HandleExportCSV concilia os arquivos e devolve as divergências em CSV.
func (h *ReconciliationHandler) HandleExportCSV(c *gin.Context) {
	in, ok := h.readInput(c)
	if !ok {
		return
	}

	outputCSV, err := h.service.ExportCSV(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}

	fileName := fmt.Sprintf("Divergencias_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Data(http.StatusOK, "text/csv; charset=windows-1252", outputCSV)
}

func (h *ReconciliationHandler) readInput(c *gin.Context) (reconciliation.Input, bool) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	statement, err := readSource(c, "statementFile", "statementHint", "extrato")
	if err != nil {
		writeRequestError(c, err)
		return reconciliation.Input{}, false
	}
	report, err := readSource(c, "reportFile", "reportHint", "relatório")
	if err != nil {
		writeRequestError(c, err)
		return reconciliation.Input{}, false
	}
	return reconciliation.Input{Statement: statement, Report: report}, true
}

func readSource(c *gin.Context, fileField, hintField, label string) (reconciliation.SourceFile, error) {
	fileHeader, err := c.FormFile(fileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return reconciliation.SourceFile{}, &requestError{
				code:    http.StatusRequestEntityTooLarge,
				message: fmt.Sprintf("Arquivos excedem o limite de %d bytes", tooLarge.Limit),
				err:     err,
			}
		}
		return reconciliation.SourceFile{}, &requestError{
			code:    http.StatusBadRequest,
			message: fmt.Sprintf("Arquivo de %s (.xlsx, .xls, .csv) não encontrado ou inválido", label),
			err:     err,
		}
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedExtensions[ext] {
		return reconciliation.SourceFile{}, &requestError{
			code:    http.StatusBadRequest,
			message: fmt.Sprintf("Extensão de arquivo de %s não suportada: %s", label, ext),
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		return reconciliation.SourceFile{}, &requestError{
			code:    http.StatusInternalServerError,
			message: fmt.Sprintf("Não foi possível abrir o arquivo de %s", label),
			err:     err,
		}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return reconciliation.SourceFile{}, &requestError{
			code:    http.StatusInternalServerError,
			message: fmt.Sprintf("Não foi possível ler o arquivo de %s", label),
			err:     err,
		}
	}

	src := reconciliation.SourceFile{Name: fileHeader.Filename, Data: data}
	if raw := strings.TrimSpace(c.PostForm(hintField)); raw != "" {
		var hint domain.ColumnHint
		if err := json.Unmarshal([]byte(raw), &hint); err != nil {
			return reconciliation.SourceFile{}, &requestError{
				code:    http.StatusBadRequest,
				message: fmt.Sprintf("Mapeamento de colunas do %s inválido", label),
				err:     err,
			}
		}
		src.Hint = &hint
	}
	return src, nil
}

func writeRequestError(c *gin.Context, err error) {
	var reqErr *requestError
	if !errors.As(err, &reqErr) {
		responses.Error(c, http.StatusInternalServerError, "Erro ao processar a requisição", err.Error())
		return
	}
	if reqErr.err != nil {
		responses.Error(c, reqErr.code, reqErr.message, reqErr.err.Error())
		return
	}
	responses.Error(c, reqErr.code, reqErr.message)
}

func (h *ReconciliationHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workbook.ErrUnreadable):
		responses.Error(c, http.StatusBadRequest, "Não foi possível ler a planilha enviada", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		responses.Error(c, http.StatusGatewayTimeout, "Tempo limite excedido ao conciliar", err.Error())
	default:
		responses.Error(c, http.StatusInternalServerError, "Erro ao conciliar os arquivos", err.Error())
	}
}
