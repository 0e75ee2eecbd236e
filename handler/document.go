package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vistaprop/backoffice/middleware"
	"github.com/vistaprop/backoffice/model"
	"github.com/vistaprop/backoffice/pkg/lifecycle"
	"github.com/vistaprop/backoffice/pkg/logger"
	"github.com/vistaprop/backoffice/pkg/notify"
	"github.com/vistaprop/backoffice/pkg/reconcile"
	"github.com/vistaprop/backoffice/service"
)

// FileStorage is the attachment store as the handlers see it.
// *service.MinioService satisfies it; tests substitute fakes.
type FileStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, objectName string) (string, error)
	DeleteFile(ctx context.Context, objectName string) error
}

type DocumentHandler struct {
	store    *service.ContractStore
	docSvc   DocumentService
	storage  FileStorage
	notifier notify.Notifier
}

func NewDocumentHandler(store *service.ContractStore, docSvc DocumentService, storage FileStorage, notifier notify.Notifier) *DocumentHandler {
	return &DocumentHandler{
		store:    store,
		docSvc:   docSvc,
		storage:  storage,
		notifier: notifier,
	}
}

// guardMutation loads the contract, checks ownership and the lifecycle lock.
// It has already written the response when it returns nil.
func (h *DocumentHandler) guardMutation(c *gin.Context) *model.Contract {
	agency := middleware.GetAgency(c)
	id := c.Param("id")

	contract := h.store.Get(id)
	if contract == nil || contract.Agency != agency {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return nil
	}
	if !lifecycle.CanMutate(contract.Status) {
		h.notifier.Notify(c.Request.Context(), notify.LevelWarning, lifecycle.ErrContractLocked.Error())
		c.JSON(http.StatusConflict, gin.H{"error": lifecycle.ErrContractLocked.Error()})
		return nil
	}
	return contract
}

// Create registers a new document requirement: first with the document
// service, then in the contract's own list. A service failure leaves the
// contract untouched.
func (h *DocumentHandler) Create(c *gin.Context) {
	contract := h.guardMutation(c)
	if contract == nil {
		return
	}

	var raw reconcile.RawDocument
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if raw.DocumentTypeID == "" && (raw.DocumentType == nil || raw.DocumentType.ID == "") {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "document type is required"})
		return
	}

	created, err := h.docSvc.CreateDocument(c.Request.Context(), contract.ID, raw)
	if err != nil {
		logger.Error(c.Request.Context(), "document service create failed", "contract_id", contract.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	doc := reconcile.Normalize(*created)
	if doc.ID == "" && doc.DocumentID == "" {
		doc.DocumentID = uuid.New().String()
	}

	h.store.SetDocuments(contract.ID, append(contract.Documents, doc))
	h.store.AppendHistory(contract.ID, model.NewChangeEntry(middleware.GetUserID(c), model.ActionDocumentCreated,
		model.FieldChange{Field: "document_type", Previous: "", New: doc.DocumentTypeID}))

	c.JSON(http.StatusCreated, doc)
}

// UploadFile attaches a file to an existing document requirement. The bytes
// go to object storage; the document keeps the object reference and a
// presigned URL. File presence promotes a pending document to UPLOADED but
// never overwrites an explicit REJECTED.
func (h *DocumentHandler) UploadFile(c *gin.Context) {
	contract := h.guardMutation(c)
	if contract == nil {
		return
	}
	docID := c.Param("docId")

	index := findDocument(contract.Documents, docID)
	if index < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	fileID := uuid.New().String()
	objectName := fmt.Sprintf("%s/%s/%s/%s", contract.Agency, contract.ID, fileID, header.Filename)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := h.storage.UploadFile(c.Request.Context(), objectName, file, header.Size, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file: " + err.Error()})
		return
	}

	fileURL, err := h.storage.GetPresignedURL(c.Request.Context(), objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate URL: " + err.Error()})
		return
	}

	docs := append([]model.Document(nil), contract.Documents...)
	docs[index].AttachFile(fileID, fileURL, header.Filename)

	h.store.SetDocuments(contract.ID, docs)
	h.store.AppendHistory(contract.ID, model.NewChangeEntry(middleware.GetUserID(c), model.ActionDocumentUploaded,
		model.FieldChange{Field: "file", Previous: "", New: header.Filename}))

	logger.Info(c.Request.Context(), "document file uploaded",
		"contract_id", contract.ID, "document_id", docID, "object", objectName)

	c.JSON(http.StatusOK, docs[index])
}

// Delete removes a document requirement, service first so a failure leaves
// the contract unchanged. An attached file goes with it; a storage failure
// only orphans the object, so it is logged rather than surfaced.
func (h *DocumentHandler) Delete(c *gin.Context) {
	contract := h.guardMutation(c)
	if contract == nil {
		return
	}
	docID := c.Param("docId")

	index := findDocument(contract.Documents, docID)
	if index < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	if err := h.docSvc.DeleteDocument(c.Request.Context(), contract.ID, docID); err != nil {
		logger.Error(c.Request.Context(), "document service delete failed", "contract_id", contract.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	doc := contract.Documents[index]
	if doc.MultimediaID != "" && doc.FileName != "" {
		objectName := fmt.Sprintf("%s/%s/%s/%s", contract.Agency, contract.ID, doc.MultimediaID, doc.FileName)
		if err := h.storage.DeleteFile(c.Request.Context(), objectName); err != nil {
			logger.Warn(c.Request.Context(), "attachment delete failed",
				"contract_id", contract.ID, "object", objectName, "error", err)
		}
	}

	docs := append([]model.Document(nil), contract.Documents[:index]...)
	docs = append(docs, contract.Documents[index+1:]...)

	h.store.SetDocuments(contract.ID, docs)
	h.store.AppendHistory(contract.ID, model.NewChangeEntry(middleware.GetUserID(c), model.ActionDocumentDeleted,
		model.FieldChange{Field: "document_id", Previous: docID, New: ""}))

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}

type SetRequiredRequest struct {
	Required bool `json:"required"`
}

// SetRequired toggles the required flag, service first.
func (h *DocumentHandler) SetRequired(c *gin.Context) {
	contract := h.guardMutation(c)
	if contract == nil {
		return
	}
	docID := c.Param("docId")

	index := findDocument(contract.Documents, docID)
	if index < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	var req SetRequiredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.docSvc.SetRequired(c.Request.Context(), contract.ID, docID, req.Required); err != nil {
		logger.Error(c.Request.Context(), "document service required toggle failed", "contract_id", contract.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	previous := fmt.Sprintf("%t", contract.Documents[index].Required)
	docs := append([]model.Document(nil), contract.Documents...)
	docs[index].Required = req.Required

	h.store.SetDocuments(contract.ID, docs)
	h.store.AppendHistory(contract.ID, model.NewChangeEntry(middleware.GetUserID(c), model.ActionRequiredToggled,
		model.FieldChange{Field: "required", Previous: previous, New: fmt.Sprintf("%t", req.Required)}))

	c.JSON(http.StatusOK, docs[index])
}

// findDocument locates a document by its resolved identity.
func findDocument(docs []model.Document, id string) int {
	for i, d := range docs {
		if reconcile.ResolveID(d) == id || d.ID == id || d.DocumentID == id {
			return i
		}
	}
	return -1
}
