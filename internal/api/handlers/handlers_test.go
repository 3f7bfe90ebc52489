package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reconciliation-service/internal/api/responses"
	"reconciliation-service/internal/core/auth"
	"reconciliation-service/internal/core/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func buildXLSX(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

type upload struct {
	field, name string
	data        []byte
}

func multipartBody(t *testing.T, files []upload, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func sampleUploads(t *testing.T) []upload {
	statement := buildXLSX(t, [][]interface{}{
		{"Data", "Histórico", "Valor"},
		{"02/01/2024", "PIX ACME", "-150,00"},
		{"03/01/2024", "BOLETO ENERGIA", "-89,90"},
	})
	report := buildXLSX(t, [][]interface{}{
		{"Quando", "Quem", "Quanto"},
		{"02/01/2024", "ACME", "150,00"},
		{"03/01/2024", "Energia", "89,90"},
		{"04/01/2024", "Sem par", "10,00"},
	})
	return []upload{
		{"statementFile", "extrato.xlsx", statement},
		{"reportFile", "relatorio.xlsx", report},
	}
}

func newReconciliationRouter(t *testing.T, maxUpload int64) *gin.Engine {
	t.Helper()
	svc, err := reconciliation.NewService(zap.NewNop(), reconciliation.Options{})
	require.NoError(t, err)
	h := NewReconciliationHandler(svc, maxUpload)

	router := gin.New()
	router.POST("/reconcile", h.HandleReconcile)
	router.POST("/reconcile/csv", h.HandleExportCSV)
	return router
}

func decode(t *testing.T, w *httptest.ResponseRecorder) responses.APIResponse {
	t.Helper()
	var resp responses.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleReconcile(t *testing.T) {
	router := newReconciliationRouter(t, 0)
	hint := `{"sheets":[{"columns":[{"name":"Quando","type":"date","examples":["02/01/2024"]},{"name":"Quanto","type":"currency"}]}]}`
	body, contentType := multipartBody(t, sampleUploads(t), map[string]string{"reportHint": hint, "export": "true"})

	req := httptest.NewRequest(http.MethodPost, "/reconcile", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			RunID   string `json:"run_id"`
			Summary struct {
				MatchedCount       int     `json:"matched_count"`
				ReportRecords      int     `json:"report_records"`
				ReconciliationRate float64 `json:"reconciliation_rate"`
				MatchedAmount      string  `json:"matched_amount"`
			} `json:"summary"`
			Result struct {
				MissingFromStatement []struct {
					Record struct {
						Date   string `json:"date"`
						Amount string `json:"amount"`
					} `json:"record"`
				} `json:"missing_from_statement"`
			} `json:"result"`
			Workbook string `json:"workbook"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.NotEmpty(t, resp.Data.RunID)
	assert.Equal(t, 2, resp.Data.Summary.MatchedCount)
	assert.Equal(t, 3, resp.Data.Summary.ReportRecords)
	assert.InDelta(t, 66.67, resp.Data.Summary.ReconciliationRate, 0.001)
	assert.Equal(t, "239.9", resp.Data.Summary.MatchedAmount)
	require.Len(t, resp.Data.Result.MissingFromStatement, 1)
	assert.Equal(t, "2024-01-04", resp.Data.Result.MissingFromStatement[0].Record.Date)
	assert.Equal(t, "10", resp.Data.Result.MissingFromStatement[0].Record.Amount)
	assert.NotEmpty(t, resp.Data.Workbook)
}

func TestHandleReconcile_BadRequests(t *testing.T) {
	router := newReconciliationRouter(t, 0)
	uploads := sampleUploads(t)

	tests := []struct {
		name    string
		files   []upload
		fields  map[string]string
		want    int
		message string
	}{
		{
			name:    "missing report",
			files:   uploads[:1],
			want:    http.StatusBadRequest,
			message: "Arquivo de relatório (.xlsx, .xls, .csv) não encontrado ou inválido",
		},
		{
			name:    "unsupported extension",
			files:   []upload{uploads[0], {"reportFile", "relatorio.pdf", []byte("%PDF")}},
			want:    http.StatusBadRequest,
			message: "Extensão de arquivo de relatório não suportada: .pdf",
		},
		{
			name:    "bad hint",
			files:   uploads,
			fields:  map[string]string{"statementHint": "{nope"},
			want:    http.StatusBadRequest,
			message: "Mapeamento de colunas do extrato inválido",
		},
		{
			name:    "bad export flag",
			files:   uploads,
			fields:  map[string]string{"export": "talvez"},
			want:    http.StatusBadRequest,
			message: "Valor inválido para export",
		},
		{
			name:    "unreadable workbook",
			files:   []upload{{"statementFile", "extrato.xlsx", []byte("lixo")}, uploads[1]},
			want:    http.StatusBadRequest,
			message: "Não foi possível ler a planilha enviada",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, tt.files, tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/reconcile", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			resp := decode(t, w)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestHandleReconcile_UploadTooLarge(t *testing.T) {
	router := newReconciliationRouter(t, 512)
	body, contentType := multipartBody(t, sampleUploads(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/reconcile", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHandleExportCSV(t *testing.T) {
	router := newReconciliationRouter(t, 0)
	body, contentType := multipartBody(t, sampleUploads(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/reconcile/csv", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment; filename=Divergencias_"))
	assert.Contains(t, w.Body.String(), "Sem par")
}

func TestLogin(t *testing.T) {
	svc, err := auth.NewService("1234", "", []byte("segredo"), time.Hour)
	require.NoError(t, err)
	router := gin.New()
	router.POST("/login", NewAuthHandler(svc).Login)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid pin", `{"pin":"1234"}`, http.StatusOK},
		{"wrong pin", `{"pin":"9999"}`, http.StatusUnauthorized},
		{"missing pin", `{}`, http.StatusBadRequest},
		{"not json", `pin=1234`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			resp := decode(t, w)
			if tt.want == http.StatusOK {
				data, ok := resp.Data.(map[string]interface{})
				require.True(t, ok)
				assert.NotEmpty(t, data["token"])
			} else {
				assert.Equal(t, "error", resp.Status)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	router := gin.New()
	router.GET("/health", Health)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"UP","service":"reconciliation-service"}`, w.Body.String())
}
