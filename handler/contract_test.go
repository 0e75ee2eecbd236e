package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vistaprop/backoffice/config"
	"github.com/vistaprop/backoffice/model"
	"github.com/vistaprop/backoffice/pkg/ledger"
	"github.com/vistaprop/backoffice/pkg/notify"
	"github.com/vistaprop/backoffice/pkg/reconcile"
	"github.com/vistaprop/backoffice/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeDocService is the handler-side stand-in for the document service.
type fakeDocService struct {
	docs        []reconcile.RawDocument
	listErr     error
	created     *reconcile.RawDocument
	createErr   error
	deleteErr   error
	requiredErr error

	deletedID  string
	requiredID string
}

func (f *fakeDocService) ListDocuments(_ context.Context, _ string) ([]reconcile.RawDocument, error) {
	return f.docs, f.listErr
}

func (f *fakeDocService) CreateDocument(_ context.Context, _ string, doc reconcile.RawDocument) (*reconcile.RawDocument, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.created != nil {
		return f.created, nil
	}
	return &doc, nil
}

func (f *fakeDocService) DeleteDocument(_ context.Context, _, documentID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedID = documentID
	return nil
}

func (f *fakeDocService) SetRequired(_ context.Context, _, documentID string, _ bool) error {
	if f.requiredErr != nil {
		return f.requiredErr
	}
	f.requiredID = documentID
	return nil
}

func newTestContractStore() *service.ContractStore {
	return service.NewContractStore(&config.StoreConfig{MaxContracts: 100})
}

func setupContractHandler(docSvc DocumentService) (*ContractHandler, *service.ContractStore, *notify.Recorder) {
	store := newTestContractStore()
	recorder := &notify.Recorder{}
	h := NewContractHandler(store, docSvc, ledger.NewTrackerRegistry(), recorder)
	return h, store, recorder
}

func performJSON(router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func asAgency(agency, userID string, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("agency", agency)
		c.Set("user_id", userID)
		handler(c)
	}
}

func TestContractHandlerList(t *testing.T) {
	h, store, _ := setupContractHandler(&fakeDocService{})

	store.Save(&model.Contract{ID: "1", Code: "CT-1", Agency: "agency1", Status: model.StatusInProcess, CreatedAt: time.Now()})
	store.Save(&model.Contract{ID: "2", Code: "CT-2", Agency: "agency1", Status: model.StatusOnHold, CreatedAt: time.Now()})
	store.Save(&model.Contract{ID: "3", Code: "CT-3", Agency: "agency2", Status: model.StatusClosed, CreatedAt: time.Now()})

	router := gin.New()
	router.GET("/contracts", asAgency("agency1", "u1", h.List))

	w := performJSON(router, "GET", "/contracts", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Contracts []map[string]any `json:"contracts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(response.Contracts) != 2 {
		t.Errorf("Expected 2 contracts for agency1, got %d", len(response.Contracts))
	}

	// ON_HOLD is displayed as IN_PROCESS.
	for _, c := range response.Contracts {
		if c["code"] == "CT-2" && c["status"] != model.StatusInProcess {
			t.Errorf("Expected ON_HOLD displayed as IN_PROCESS, got %v", c["status"])
		}
	}
}

func TestContractHandlerGetReconcilesDocuments(t *testing.T) {
	docSvc := &fakeDocService{
		docs: []reconcile.RawDocument{
			{ID: "a", DocumentTypeID: "dt1", MultimediaID: "m1"},
			{ID: "b", DocumentTypeID: "dt2"},
		},
	}
	h, store, _ := setupContractHandler(docSvc)

	store.Save(&model.Contract{
		ID:        "c1",
		Agency:    "agency1",
		Status:    model.StatusInProcess,
		Documents: []model.Document{{ID: "a", DocumentTypeID: "dt1"}},
		Payments:  []model.Payment{{ID: "p1", Amount: 100}},
		CreatedAt: time.Now(),
	})

	router := gin.New()
	router.GET("/contracts/:id", asAgency("agency1", "u1", h.Get))

	w := performJSON(router, "GET", "/contracts/c1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		Contract model.Contract `json:"contract"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(response.Contract.Documents) != 2 {
		t.Fatalf("Expected 2 reconciled documents, got %d", len(response.Contract.Documents))
	}
	if !response.Contract.Documents[0].Uploaded {
		t.Error("Expected enriched document to be uploaded")
	}
	if response.Contract.Payments[0].Status != model.PaymentPending {
		t.Errorf("Expected normalized payment status, got %s", response.Contract.Payments[0].Status)
	}
}

func TestContractHandlerGetDegradesOnServiceFailure(t *testing.T) {
	docSvc := &fakeDocService{listErr: context.DeadlineExceeded}
	h, store, recorder := setupContractHandler(docSvc)

	store.Save(&model.Contract{
		ID:        "c1",
		Agency:    "agency1",
		Status:    model.StatusInProcess,
		Documents: []model.Document{{ID: "a"}},
		CreatedAt: time.Now(),
	})

	router := gin.New()
	router.GET("/contracts/:id", asAgency("agency1", "u1", h.Get))

	w := performJSON(router, "GET", "/contracts/c1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected the view to survive a service failure, got %d", w.Code)
	}

	var response struct {
		Contract model.Contract `json:"contract"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	if len(response.Contract.Documents) != 1 {
		t.Errorf("Expected embedded documents to stand, got %d", len(response.Contract.Documents))
	}

	entries := recorder.Entries()
	if len(entries) != 1 || entries[0].Level != notify.LevelWarning {
		t.Errorf("Expected one warning notification, got %+v", entries)
	}
}

func TestContractHandlerGetWrongAgency(t *testing.T) {
	h, store, _ := setupContractHandler(&fakeDocService{})

	store.Save(&model.Contract{ID: "c1", Agency: "agency1", CreatedAt: time.Now()})

	router := gin.New()
	router.GET("/contracts/:id", asAgency("agency2", "u1", h.Get))

	w := performJSON(router, "GET", "/contracts/c1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for wrong agency, got %d", w.Code)
	}
}

func TestContractHandlerUpdateStatus(t *testing.T) {
	tests := []struct {
		name           string
		current        string
		requested      string
		expectedStatus int
	}{
		{"close in-process", model.StatusInProcess, "CLOSED", http.StatusOK},
		{"hold in-process", model.StatusInProcess, "ON_HOLD", http.StatusOK},
		{"reopen closed", model.StatusClosed, "IN_PROCESS", http.StatusConflict},
		{"fail closed", model.StatusClosed, "FAILED", http.StatusConflict},
		{"reconfirm closed", model.StatusClosed, "CLOSED", http.StatusOK},
		{"reconfirm failed lowercase", model.StatusFailed, "failed", http.StatusOK},
		{"unknown target", model.StatusInProcess, "ARCHIVED", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store, recorder := setupContractHandler(&fakeDocService{})
			store.Save(&model.Contract{ID: "c1", Agency: "agency1", Status: tt.current, CreatedAt: time.Now()})

			router := gin.New()
			router.PUT("/contracts/:id/status", asAgency("agency1", "u1", h.UpdateStatus))

			w := performJSON(router, "PUT", "/contracts/c1/status", UpdateStatusRequest{Status: tt.requested})
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			if tt.expectedStatus == http.StatusConflict {
				if store.Get("c1").Status != tt.current {
					t.Error("Expected blocked transition to leave status unchanged")
				}
				if len(recorder.Entries()) == 0 {
					t.Error("Expected a warning notification on guard rejection")
				}
			}
		})
	}
}

func TestContractHandlerUpdateStatusAppendsHistory(t *testing.T) {
	h, store, _ := setupContractHandler(&fakeDocService{})
	store.Save(&model.Contract{ID: "c1", Agency: "agency1", Status: model.StatusInProcess, CreatedAt: time.Now()})

	router := gin.New()
	router.PUT("/contracts/:id/status", asAgency("agency1", "user-9", h.UpdateStatus))

	performJSON(router, "PUT", "/contracts/c1/status", UpdateStatusRequest{Status: "CLOSED"})

	contract := store.Get("c1")
	if len(contract.ChangeHistory) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(contract.ChangeHistory))
	}
	entry := contract.ChangeHistory[0]
	if entry.Action != model.ActionStatusChanged {
		t.Errorf("Expected action %s, got %s", model.ActionStatusChanged, entry.Action)
	}
	if entry.ActorID == nil || *entry.ActorID != "user-9" {
		t.Error("Expected history tagged with acting user")
	}
	if len(entry.Changes) != 1 || entry.Changes[0].New != "CLOSED" {
		t.Errorf("Expected status change pair, got %+v", entry.Changes)
	}
}

func TestContractHandlerUpdateFinancials(t *testing.T) {
	h, store, _ := setupContractHandler(&fakeDocService{})
	store.Save(&model.Contract{ID: "c1", Agency: "agency1", Status: model.StatusInProcess, CreatedAt: time.Now()})

	router := gin.New()
	router.PUT("/contracts/:id/financials", asAgency("agency1", "u1", h.UpdateFinancials))

	// UF without reference value is rejected before any write.
	w := performJSON(router, "PUT", "/contracts/c1/financials", model.Financials{
		Amount: 120, Currency: model.CurrencyUF, CommissionPercent: 3,
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422 for missing UF value, got %d", w.Code)
	}
	if store.Get("c1").Amount != 0 {
		t.Error("Expected failed validation to leave the contract unchanged")
	}

	w = performJSON(router, "PUT", "/contracts/c1/financials", model.Financials{
		Amount: 450000, Currency: model.CurrencyCLP, CommissionPercent: 5,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if store.Get("c1").CommissionAmount != 22500 {
		t.Errorf("Expected derived commission 22500, got %v", store.Get("c1").CommissionAmount)
	}
}

func TestContractHandlerUpdateFinancialsLocked(t *testing.T) {
	h, store, recorder := setupContractHandler(&fakeDocService{})
	store.Save(&model.Contract{ID: "c1", Agency: "agency1", Status: model.StatusClosed, Amount: 100, CreatedAt: time.Now()})

	router := gin.New()
	router.PUT("/contracts/:id/financials", asAgency("agency1", "u1", h.UpdateFinancials))

	w := performJSON(router, "PUT", "/contracts/c1/financials", model.Financials{
		Amount: 999, Currency: model.CurrencyCLP, CommissionPercent: 5,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for terminal contract, got %d", w.Code)
	}
	if store.Get("c1").Amount != 100 {
		t.Error("Expected amount unchanged on a locked contract")
	}
	if len(recorder.Entries()) == 0 {
		t.Error("Expected a warning notification")
	}
}

func TestContractHandlerCreate(t *testing.T) {
	h, store, _ := setupContractHandler(&fakeDocService{})

	router := gin.New()
	router.POST("/contracts", asAgency("agency1", "u1", h.Create))

	w := performJSON(router, "POST", "/contracts", CreateContractRequest{
		Code: "CT-100",
		Financials: model.Financials{
			Amount: 450000, Currency: model.CurrencyCLP, CommissionPercent: 5,
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created model.Contract
	json.Unmarshal(w.Body.Bytes(), &created)
	if created.Status != model.StatusInProcess {
		t.Errorf("Expected new contract IN_PROCESS, got %s", created.Status)
	}
	if created.CommissionAmount != 22500 {
		t.Errorf("Expected derived commission, got %v", created.CommissionAmount)
	}
	if store.Get(created.ID) == nil {
		t.Error("Expected contract persisted")
	}

	// Validation failure
	w = performJSON(router, "POST", "/contracts", CreateContractRequest{
		Code: "CT-101",
		Financials: model.Financials{
			Amount: -5, Currency: model.CurrencyCLP, CommissionPercent: 5,
		},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for negative amount, got %d", w.Code)
	}
}
