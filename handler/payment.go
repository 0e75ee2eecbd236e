package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vistaprop/backoffice/middleware"
	"github.com/vistaprop/backoffice/model"
	"github.com/vistaprop/backoffice/pkg/ledger"
	"github.com/vistaprop/backoffice/pkg/lifecycle"
	"github.com/vistaprop/backoffice/pkg/logger"
	"github.com/vistaprop/backoffice/pkg/notify"
	"github.com/vistaprop/backoffice/service"
)

type PaymentHandler struct {
	store    *service.ContractStore
	trackers *ledger.TrackerRegistry
	notifier notify.Notifier
}

func NewPaymentHandler(store *service.ContractStore, trackers *ledger.TrackerRegistry, notifier notify.Notifier) *PaymentHandler {
	return &PaymentHandler{
		store:    store,
		trackers: trackers,
		notifier: notifier,
	}
}

type AddPaymentRequest struct {
	Amount          float64 `json:"amount"`
	Date            string  `json:"date" binding:"required"`
	Type            string  `json:"type" binding:"required"`
	Description     string  `json:"description"`
	IsAgencyRevenue bool    `json:"is_agency_revenue"`
}

// Add appends one payment to the contract's ledger. The draft is normalized
// (status defaulted, local token assigned) and the store persists a
// sanitized copy under a server id.
func (h *PaymentHandler) Add(c *gin.Context) {
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

	var req AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Amount <= 0 {
		h.notifier.Notify(c.Request.Context(), notify.LevelWarning, model.ErrAmountNotPositive.Error())
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": model.ErrAmountNotPositive.Error()})
		return
	}

	draft := model.Payment{
		Amount:          req.Amount,
		Date:            req.Date,
		Type:            req.Type,
		Description:     req.Description,
		IsAgencyRevenue: req.IsAgencyRevenue,
	}

	normalized := ledger.Normalize(append(contract.Payments, draft))

	// Persistence assigns the server id; the local token never crosses this
	// line.
	persisted := ledger.SanitizeForPersist(normalized)
	persisted[len(persisted)-1].ID = uuid.New().String()
	h.store.SetPayments(id, persisted)
	h.store.AppendHistory(id, model.NewChangeEntry(middleware.GetUserID(c), model.ActionPaymentAdded,
		model.FieldChange{Field: "type", Previous: "", New: req.Type}))

	logger.Info(c.Request.Context(), "payment added", "contract_id", id, "type", req.Type)

	c.JSON(http.StatusCreated, gin.H{"payments": persisted})
}

type UpdatePaymentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus moves one payment to a new status. Moving a payment back to
// PENDING is not exposed; a transition into PAID without a server paid-at
// earns an optimistic display stamp from the tracker, replaced the moment an
// authoritative value arrives.
func (h *PaymentHandler) UpdateStatus(c *gin.Context) {
	agency := middleware.GetAgency(c)
	id := c.Param("id")
	key := c.Param("key")

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

	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	switch req.Status {
	case model.PaymentPendingVerification, model.PaymentPaid, model.PaymentCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown payment status"})
		return
	}

	payments := ledger.Normalize(contract.Payments)
	previous := ""
	found := false
	for i := range payments {
		if payments[i].Key() == key {
			previous = payments[i].Status
			payments[i].Status = req.Status
			found = true
			break
		}
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		return
	}

	h.store.SetPayments(id, ledger.SanitizeForPersist(payments))
	h.store.AppendHistory(id, model.NewChangeEntry(middleware.GetUserID(c), model.ActionPaymentUpdated,
		model.FieldChange{Field: "status", Previous: previous, New: req.Status}))

	paidAt := h.trackers.Observe(id, payments)

	c.JSON(http.StatusOK, gin.H{
		"payments":           payments,
		"optimistic_paid_at": paidAt,
	})
}
