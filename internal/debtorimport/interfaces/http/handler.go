package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"condo-backoffice/internal/audit"
	"condo-backoffice/internal/auth"
	"condo-backoffice/internal/debtorimport/application"
	debtorimport "condo-backoffice/internal/debtorimport/domain"
	"condo-backoffice/internal/debtorimport/interfaces/sheet"
)

const defaultMaxUploadBytes = 10 << 20

// Handler serves debtor import endpoints.
type Handler struct {
	service        *application.Service
	parser         *sheet.Parser
	projectChecker auth.ProjectTenantChecker
	maxUploadBytes int64
	logger         *log.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *application.Service, parser *sheet.Parser, projectChecker auth.ProjectTenantChecker, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("debtor import handler: nil service")
	}
	if parser == nil {
		return nil, errors.New("debtor import handler: nil parser")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		service:        service,
		parser:         parser,
		projectChecker: projectChecker,
		maxUploadBytes: defaultMaxUploadBytes,
		logger:         logger,
	}, nil
}

// Register mounts the import routes.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/projects/{projectID}/debtor-imports", h.handleRun).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/projects/{projectID}/debtor-imports/validate", h.handleValidate).Methods(http.MethodPost)
}

type rowPayload struct {
	Row           int                 `json:"row"`
	InvoiceNumber string              `json:"invoiceNumber"`
	BillDate      string              `json:"billDate"`
	DueDate       string              `json:"dueDate"`
	UnitNumber    string              `json:"unitNumber"`
	ItemCode      string              `json:"itemCode"`
	ServiceName   string              `json:"serviceName"`
	Description   string              `json:"description"`
	Amount        decimal.NullDecimal `json:"amount"`
}

type importPayload struct {
	Rows []rowPayload `json:"rows"`
}

type issuesResponse struct {
	Success          bool     `json:"success"`
	ValidationErrors []string `json:"validationErrors"`
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.authorizeProject(w, r)
	if !ok {
		return
	}
	rows, ok := h.readRows(w, r)
	if !ok {
		return
	}

	origin := audit.OriginFromRequest(r)
	result, err := h.service.Run(r.Context(), application.RunRequest{
		ProjectID: projectID,
		TenantID:  auth.TenantIDFromContext(r.Context()),
		Actor:     auth.SubjectFromContext(r.Context()),
		Role:      string(auth.RoleFromContext(r.Context())),
		IP:        origin.IP,
		UserAgent: origin.UserAgent,
		Rows:      rows,
	})
	if err != nil {
		respondRunError(w, err, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.authorizeProject(w, r)
	if !ok {
		return
	}
	rows, ok := h.readRows(w, r)
	if !ok {
		return
	}
	report, err := h.service.Validate(r.Context(), projectID, rows)
	if err != nil {
		h.logger.Printf("debtor import validate: project=%s: %v", projectID, err)
		http.Error(w, "validation failed to run", http.StatusInternalServerError)
		return
	}
	status := http.StatusOK
	if !report.Valid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, report)
}

func (h *Handler) authorizeProject(w http.ResponseWriter, r *http.Request) (string, bool) {
	projectID := strings.TrimSpace(mux.Vars(r)["projectID"])
	if projectID == "" {
		http.Error(w, "project id required", http.StatusBadRequest)
		return "", false
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if h.projectChecker == nil || tenantID == "" {
		return projectID, true
	}
	err := h.projectChecker.EnsureProjectTenant(r.Context(), tenantID, projectID)
	switch {
	case err == nil:
		return projectID, true
	case errors.Is(err, auth.ErrProjectMismatch):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, auth.ErrProjectNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		h.logger.Printf("debtor import: project check %s: %v", projectID, err)
		http.Error(w, "tenant check failed", http.StatusInternalServerError)
	}
	return "", false
}

// readRows accepts a multipart upload in field "file" or a JSON body.
func (h *Handler) readRows(w http.ResponseWriter, r *http.Request) ([]debtorimport.ImportRow, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	defer r.Body.Close()

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return h.readUpload(w, r)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return nil, false
	}
	var payload importPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return nil, false
	}
	rows, issues := payload.toRows()
	if len(issues) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, issuesResponse{ValidationErrors: issues})
		return nil, false
	}
	return rows, true
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]debtorimport.ImportRow, bool) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file required", http.StatusBadRequest)
		return nil, false
	}
	defer file.Close()

	parsed, err := h.parser.Parse(header.Filename, file)
	switch {
	case errors.Is(err, sheet.ErrUnsupportedFormat), errors.Is(err, sheet.ErrNoHeader), errors.Is(err, sheet.ErrMissingColumn):
		writeJSON(w, http.StatusUnprocessableEntity, issuesResponse{ValidationErrors: []string{err.Error()}})
		return nil, false
	case err != nil:
		http.Error(w, "unreadable spreadsheet", http.StatusBadRequest)
		return nil, false
	}
	if len(parsed.Issues) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, issuesResponse{ValidationErrors: parsed.Issues})
		return nil, false
	}
	return parsed.Rows, true
}

func (p importPayload) toRows() ([]debtorimport.ImportRow, []string) {
	rows := make([]debtorimport.ImportRow, 0, len(p.Rows))
	var issues []string
	for i, item := range p.Rows {
		row := debtorimport.ImportRow{
			RowNumber:     item.Row,
			InvoiceNumber: item.InvoiceNumber,
			UnitNumber:    item.UnitNumber,
			ItemCode:      item.ItemCode,
			ServiceName:   item.ServiceName,
			Description:   item.Description,
			Amount:        item.Amount,
		}
		if row.RowNumber == 0 {
			row.RowNumber = i + 1
		}
		if value := strings.TrimSpace(item.BillDate); value != "" {
			date, err := sheet.ParseDate(value)
			if err != nil {
				issues = append(issues, fmt.Sprintf("row %d: billDate %q: %v", row.RowNumber, value, err))
			}
			row.BillDate = date
		}
		if value := strings.TrimSpace(item.DueDate); value != "" {
			date, err := sheet.ParseDate(value)
			if err != nil {
				issues = append(issues, fmt.Sprintf("row %d: dueDate %q: %v", row.RowNumber, value, err))
			}
			row.DueDate = date
		}
		rows = append(rows, row)
	}
	return rows, issues
}

func respondRunError(w http.ResponseWriter, err error, result debtorimport.ImportResult) {
	switch {
	case errors.Is(err, debtorimport.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, result)
	case errors.Is(err, debtorimport.ErrImportInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, debtorimport.ErrEmptyProjectID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		writeJSON(w, http.StatusInternalServerError, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
