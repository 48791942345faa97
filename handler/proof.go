package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/middleware"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/model"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/pkg/logger"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/service"
)

// ImageStorage is the slice of proof image storage the handler needs.
// Satisfied by *service.ImageStore.
type ImageStorage interface {
	UploadImage(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, objectName string) (string, error)
	DeleteImage(ctx context.Context, objectName string) error
}

type ProofHandler struct {
	store  service.Store
	images ImageStorage
}

func NewProofHandler(store service.Store, images ImageStorage) *ProofHandler {
	return &ProofHandler{store: store, images: images}
}

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// Submit handles proof image upload for a contract
func (h *ProofHandler) Submit(c *gin.Context) {
	userID := middleware.GetUserID(c)
	contractID := c.Param("id")
	ctx := c.Request.Context()

	contract, err := h.store.GetContract(ctx, contractID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}
	if contract.CreatorID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}
	if contract.Status != model.StatusInProgress {
		c.JSON(http.StatusConflict, gin.H{"error": "Contract is not accepting proofs"})
		return
	}

	// Get file from form
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image provided"})
		return
	}
	defer file.Close()

	// Validate file type - images only
	ext := strings.ToLower(filepath.Ext(header.Filename))
	expectedContentType, ok := imageContentTypes[ext]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only jpg, png, and webp images are allowed"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		// Detect from file header
		buffer := make([]byte, 512)
		if _, err := file.Read(buffer); err != nil && err != io.EOF {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image"})
			return
		}
		file.Seek(0, io.SeekStart) // Reset file pointer

		detectedType := http.DetectContentType(buffer)
		if !strings.HasPrefix(detectedType, "image/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image file"})
			return
		}
		contentType = expectedContentType
	} else if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image content type"})
		return
	}

	// One proof per calendar day
	now := time.Now()
	existing, err := h.store.ListProofsByContract(ctx, contractID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing proofs"})
		return
	}
	if err := service.ValidateNewProof(existing, now); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A proof was already submitted today"})
		return
	}

	proofID := uuid.New().String()
	objectName := fmt.Sprintf("%s/%s/%s%s", userID, contractID, proofID, ext)

	if err := h.images.UploadImage(ctx, objectName, file, header.Size, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload image: " + err.Error()})
		return
	}

	imageURL, err := h.images.GetPresignedURL(ctx, objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate URL: " + err.Error()})
		return
	}

	proof := &model.Proof{
		ID:         proofID,
		ContractID: contractID,
		UserID:     userID,
		ObjectName: objectName,
		ImageURL:   imageURL,
		Comment:    c.PostForm("comment"),
		ProofDate:  now,
		Status:     model.ProofPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.store.SaveProof(ctx, proof); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save proof"})
		return
	}

	logger.Info(ctx, "proof submitted",
		"proof_id", proofID,
		"contract_id", contractID,
	)

	c.JSON(http.StatusCreated, proof)
}

// List returns all proofs of a contract, oldest first
func (h *ProofHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	contractID := c.Param("id")
	ctx := c.Request.Context()

	contract, err := h.store.GetContract(ctx, contractID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}
	if contract.CreatorID != userID && contract.FindSupervisor(userID) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}

	proofs, err := h.store.ListProofsByContract(ctx, contractID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list proofs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"proofs": proofs})
}

type VoteRequest struct {
	Comment string `json:"comment"`
}

// Approve records an approval vote from the calling supervisor
func (h *ProofHandler) Approve(c *gin.Context) {
	h.vote(c, true)
}

// Reject records a rejection vote from the calling supervisor
func (h *ProofHandler) Reject(c *gin.Context) {
	h.vote(c, false)
}

func (h *ProofHandler) vote(c *gin.Context, approve bool) {
	userID := middleware.GetUserID(c)
	proofID := c.Param("id")
	ctx := c.Request.Context()

	var req VoteRequest
	// Body is optional; a bare vote carries no comment.
	_ = c.ShouldBindJSON(&req)

	proof, err := h.store.GetProof(ctx, proofID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Proof not found"})
		return
	}

	contract, err := h.store.GetContract(ctx, proof.ContractID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}

	if err := service.ApplyVote(contract, proof, userID, approve, req.Comment, time.Now()); err != nil {
		switch {
		case errors.Is(err, service.ErrNotSupervisor):
			c.JSON(http.StatusForbidden, gin.H{"error": "Only signed supervisors can vote"})
		case errors.Is(err, service.ErrAlreadyVoted):
			c.JSON(http.StatusConflict, gin.H{"error": "Already voted on this proof"})
		case errors.Is(err, service.ErrProofSettled):
			c.JSON(http.StatusConflict, gin.H{"error": "Proof is already settled"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record vote"})
		}
		return
	}

	if err := h.store.SaveProof(ctx, proof); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save proof"})
		return
	}

	logger.Info(ctx, "proof vote recorded",
		"proof_id", proofID,
		"approve", approve,
		"status", proof.Status,
	)

	c.JSON(http.StatusOK, proof)
}

// Delete retracts the caller's own proof before any supervisor has voted,
// removing the stored image with it.
func (h *ProofHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)
	proofID := c.Param("id")
	ctx := c.Request.Context()

	proof, err := h.store.GetProof(ctx, proofID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Proof not found"})
		return
	}
	if proof.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Proof not found"})
		return
	}
	if proof.Status != model.ProofPending || len(proof.Feedbacks) > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Proof is already under review"})
		return
	}

	if err := h.images.DeleteImage(ctx, proof.ObjectName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete image: " + err.Error()})
		return
	}
	if err := h.store.DeleteProof(ctx, proofID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete proof"})
		return
	}

	logger.Info(ctx, "proof retracted",
		"proof_id", proofID,
		"contract_id", proof.ContractID,
	)

	c.JSON(http.StatusOK, gin.H{"message": "Proof deleted"})
}
