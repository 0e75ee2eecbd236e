package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vistaprop/backoffice/middleware"
	"github.com/vistaprop/backoffice/model"
	"github.com/vistaprop/backoffice/pkg/aggregate"
	"github.com/vistaprop/backoffice/pkg/ledger"
	"github.com/vistaprop/backoffice/pkg/lifecycle"
	"github.com/vistaprop/backoffice/pkg/logger"
	"github.com/vistaprop/backoffice/pkg/notify"
	"github.com/vistaprop/backoffice/pkg/reconcile"
	"github.com/vistaprop/backoffice/service"
)

// DocumentService is the document-service collaborator as the handlers see
// it. *service.DocService satisfies it; tests substitute fakes.
type DocumentService interface {
	ListDocuments(ctx context.Context, contractID string) ([]reconcile.RawDocument, error)
	CreateDocument(ctx context.Context, contractID string, doc reconcile.RawDocument) (*reconcile.RawDocument, error)
	DeleteDocument(ctx context.Context, contractID, documentID string) error
	SetRequired(ctx context.Context, contractID, documentID string, required bool) error
}

type ContractHandler struct {
	store    *service.ContractStore
	docSvc   DocumentService
	trackers *ledger.TrackerRegistry
	notifier notify.Notifier
}

func NewContractHandler(store *service.ContractStore, docSvc DocumentService, trackers *ledger.TrackerRegistry, notifier notify.Notifier) *ContractHandler {
	return &ContractHandler{
		store:    store,
		docSvc:   docSvc,
		trackers: trackers,
		notifier: notifier,
	}
}

type CreateContractRequest struct {
	Code           string              `json:"code" binding:"required"`
	Financials     model.Financials    `json:"financials" binding:"required"`
	AgentID        string              `json:"agent_id"`
	AgentFirstName string              `json:"agent_first_name"`
	AgentLastName  string              `json:"agent_last_name"`
	AgentRole      string              `json:"agent_role"`
	People         []model.Participant `json:"people"`
}

// Create registers a new contract in IN_PROCESS.
func (h *ContractHandler) Create(c *gin.Context) {
	agency := middleware.GetAgency(c)

	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := req.Financials.Validate(); err != nil {
		h.notifier.Notify(c.Request.Context(), notify.LevelWarning, err.Error())
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	contract := &model.Contract{
		ID:                uuid.New().String(),
		Code:              req.Code,
		Agency:            agency,
		Status:            model.StatusInProcess,
		Amount:            req.Financials.Amount,
		Currency:          req.Financials.Currency,
		UFValue:           req.Financials.UFValue,
		CommissionPercent: req.Financials.CommissionPercent,
		CommissionAmount:  req.Financials.CommissionAmount(),
		AgentID:           req.AgentID,
		AgentFirstName:    req.AgentFirstName,
		AgentLastName:     req.AgentLastName,
		AgentRole:         req.AgentRole,
		People:            req.People,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	h.store.Save(contract)

	logger.Info(c.Request.Context(), "contract created", "contract_id", contract.ID, "code", contract.Code)

	c.JSON(http.StatusCreated, contract)
}

// List returns contract summaries for the current agency.
func (h *ContractHandler) List(c *gin.Context) {
	agency := middleware.GetAgency(c)
	contracts := h.store.GetByAgency(agency)

	result := make([]gin.H, len(contracts))
	for i, contract := range contracts {
		result[i] = gin.H{
			"id":         contract.ID,
			"code":       contract.Code,
			"status":     lifecycle.DisplayStatus(contract.Status),
			"amount":     contract.Amount,
			"currency":   contract.Currency,
			"created_at": contract.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			"updated_at": contract.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	c.JSON(http.StatusOK, gin.H{"contracts": result})
}

// Get returns the full contract aggregate: payments normalized, the embedded
// document list reconciled against the document service's list, optimistic
// paid-at stamps attached. A document-service failure degrades to the
// embedded list rather than failing the view.
func (h *ContractHandler) Get(c *gin.Context) {
	agency := middleware.GetAgency(c)
	id := c.Param("id")

	contract := h.store.Get(id)
	if contract == nil || contract.Agency != agency {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}

	var serviceDocs []reconcile.RawDocument
	docs, err := h.docSvc.ListDocuments(c.Request.Context(), id)
	if err != nil {
		logger.Warn(c.Request.Context(), "document service fetch failed", "contract_id", id, "error", err)
		h.notifier.Notify(c.Request.Context(), notify.LevelWarning, "Document list may be incomplete: "+err.Error())
	} else {
		serviceDocs = docs
	}

	view := aggregate.Map(contract, serviceDocs, nil)
	paidAt := h.trackers.Observe(id, view.Payments)

	c.JSON(http.StatusOK, gin.H{
		"contract":           view,
		"display_status":     lifecycle.DisplayStatus(view.Status),
		"optimistic_paid_at": paidAt,
	})
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus transitions the contract's status under the lifecycle guard.
// A terminal contract only accepts a re-confirmation of its own status.
func (h *ContractHandler) UpdateStatus(c *gin.Context) {
	agency := middleware.GetAgency(c)
	id := c.Param("id")

	contract := h.store.Get(id)
	if contract == nil || contract.Agency != agency {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := lifecycle.CheckTransition(contract.Status, req.Status); err != nil {
		if errors.Is(err, lifecycle.ErrUnknownStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.notifier.Notify(c.Request.Context(), notify.LevelWarning, err.Error())
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	previous := contract.Status
	next := lifecycle.Normalize(req.Status)
	if previous == next {
		c.JSON(http.StatusOK, gin.H{"id": id, "status": next})
		return
	}

	h.store.UpdateStatus(id, next)
	h.store.AppendHistory(id, model.NewChangeEntry(middleware.GetUserID(c), model.ActionStatusChanged,
		model.FieldChange{Field: "status", Previous: previous, New: next}))

	logger.Info(c.Request.Context(), "contract status updated", "contract_id", id, "from", previous, "to", next)

	c.JSON(http.StatusOK, gin.H{"id": id, "status": next})
}

// UpdateFinancials edits the money fields under the lifecycle guard, with
// validation ahead of any write.
func (h *ContractHandler) UpdateFinancials(c *gin.Context) {
	agency := middleware.GetAgency(c)
	id := c.Param("id")

	contract := h.store.Get(id)
	if contract == nil || contract.Agency != agency {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}

	if !lifecycle.CanMutate(contract.Status) {
		h.notifier.Notify(c.Request.Context(), notify.LevelWarning, lifecycle.ErrContractLocked.Error())
		c.JSON(http.StatusConflict, gin.H{"error": lifecycle.ErrContractLocked.Error()})
		return
	}

	var req model.Financials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := req.Validate(); err != nil {
		h.notifier.Notify(c.Request.Context(), notify.LevelWarning, err.Error())
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	h.store.UpdateFinancials(id, req)
	h.store.AppendHistory(id, model.NewChangeEntry(middleware.GetUserID(c), model.ActionFinancialsEdited))

	c.JSON(http.StatusOK, h.store.Get(id))
}
