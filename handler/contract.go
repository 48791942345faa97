package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/middleware"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/model"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/pkg/logger"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/pkg/metrics"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/pkg/progress"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/service"
)

type ContractHandler struct {
	store service.Store
}

func NewContractHandler(store service.Store) *ContractHandler {
	return &ContractHandler{store: store}
}

type SupervisorRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Nickname string `json:"nickname"`
}

type CreateContractRequest struct {
	Title        string              `json:"title" binding:"required"`
	Goal         string              `json:"goal"`
	Reward       string              `json:"reward"`
	Penalty      string              `json:"penalty"`
	OneOff       bool                `json:"one_off"`
	StartDate    string              `json:"start_date" binding:"required"`
	EndDate      string              `json:"end_date"`
	TargetProofs int                 `json:"target_proofs"`
	Supervisors  []SupervisorRequest `json:"supervisors" binding:"required,min=1"`
}

// Create creates a new contract in PENDING state
func (h *ContractHandler) Create(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_date"})
		return
	}

	var end time.Time
	if req.OneOff {
		// One-off contracts always run exactly 24 hours.
		end = start.Add(24 * time.Hour)
	} else {
		end, err = time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_date"})
			return
		}
		if !end.After(start) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be after start_date"})
			return
		}
	}

	targetProofs := req.TargetProofs
	if req.OneOff {
		targetProofs = 1
	}
	if targetProofs < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_proofs must be at least 1"})
		return
	}

	userID := middleware.GetUserID(c)
	supervisors := make([]model.Supervisor, 0, len(req.Supervisors))
	for _, s := range req.Supervisors {
		if s.UserID == userID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot supervise your own contract"})
			return
		}
		supervisors = append(supervisors, model.Supervisor{
			UserID:   s.UserID,
			Nickname: s.Nickname,
		})
	}

	now := time.Now()
	contract := &model.Contract{
		ID:              uuid.New().String(),
		CreatorID:       userID,
		CreatorNickname: middleware.GetNickname(c),
		Title:           req.Title,
		Goal:            req.Goal,
		Reward:          req.Reward,
		Penalty:         req.Penalty,
		OneOff:          req.OneOff,
		StartDate:       start,
		EndDate:         end,
		TargetProofs:    targetProofs,
		Status:          model.StatusPending,
		Supervisors:     supervisors,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.store.SaveContract(c.Request.Context(), contract); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save contract"})
		return
	}

	metrics.ContractsTotal.WithLabelValues(string(model.StatusPending)).Inc()
	logger.Info(c.Request.Context(), "contract created",
		"contract_id", contract.ID,
		"one_off", contract.OneOff,
		"supervisors", len(contract.Supervisors),
	)

	c.JSON(http.StatusCreated, h.contractResponse(c, contract))
}

// List returns all contracts the caller created or supervises
func (h *ContractHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	contracts, err := h.store.ListContractsByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list contracts"})
		return
	}

	now := time.Now()
	result := make([]gin.H, len(contracts))
	for i, contract := range contracts {
		result[i] = gin.H{
			"id":             contract.ID,
			"title":          contract.Title,
			"status":         contract.Status,
			"one_off":        contract.OneOff,
			"start_date":     contract.StartDate.Format(time.RFC3339),
			"end_date":       contract.EndDate.Format(time.RFC3339),
			"period_percent": progress.ForContract(contract, now),
			"created_at":     contract.CreatedAt.Format(time.RFC3339),
			"updated_at":     contract.UpdatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, gin.H{"contracts": result})
}

// Get returns a single contract with progress and proof counts
func (h *ContractHandler) Get(c *gin.Context) {
	contract, ok := h.authorizedContract(c, false)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.contractResponse(c, contract))
}

// Sign records the calling supervisor's signature on a contract
func (h *ContractHandler) Sign(c *gin.Context) {
	contract, ok := h.authorizedContract(c, false)
	if !ok {
		return
	}

	userID := middleware.GetUserID(c)
	if err := service.SignContract(contract, userID, time.Now()); err != nil {
		switch {
		case errors.Is(err, service.ErrNotParticipant):
			c.JSON(http.StatusForbidden, gin.H{"error": "Only invited supervisors can sign"})
		case errors.Is(err, service.ErrAlreadySigned):
			c.JSON(http.StatusConflict, gin.H{"error": "Already signed"})
		case errors.Is(err, service.ErrContractClosed):
			c.JSON(http.StatusConflict, gin.H{"error": "Contract is no longer open for signatures"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign contract"})
		}
		return
	}

	if err := h.store.SaveContract(c.Request.Context(), contract); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save contract"})
		return
	}

	logger.Info(c.Request.Context(), "contract signed",
		"contract_id", contract.ID,
		"signed_count", contract.SignedCount(),
	)

	c.JSON(http.StatusOK, h.contractResponse(c, contract))
}

// Withdraw abandons or deletes the caller's contract. A contract that never
// started is removed outright; a running one is marked ABANDONED so the
// penalty stands.
func (h *ContractHandler) Withdraw(c *gin.Context) {
	contract, ok := h.authorizedContract(c, true)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	switch contract.Status {
	case model.StatusPending:
		if err := h.store.DeleteContract(ctx, contract.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete contract"})
			return
		}
		logger.Info(ctx, "contract deleted", "contract_id", contract.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Contract deleted"})
	case model.StatusInProgress:
		contract.Status = model.StatusAbandoned
		if err := h.store.SaveContract(ctx, contract); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save contract"})
			return
		}
		metrics.ContractsTotal.WithLabelValues(string(model.StatusAbandoned)).Inc()
		logger.Info(ctx, "contract abandoned", "contract_id", contract.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Contract abandoned"})
	default:
		c.JSON(http.StatusConflict, gin.H{"error": "Contract is already settled"})
	}
}

// authorizedContract loads the contract and checks the caller is a
// participant (creatorOnly restricts to the creator).
func (h *ContractHandler) authorizedContract(c *gin.Context, creatorOnly bool) (*model.Contract, bool) {
	userID := middleware.GetUserID(c)
	id := c.Param("id")

	contract, err := h.store.GetContract(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return nil, false
	}

	isCreator := contract.CreatorID == userID
	if creatorOnly && !isCreator {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return nil, false
	}
	if !isCreator && contract.FindSupervisor(userID) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return nil, false
	}

	return contract, true
}

func (h *ContractHandler) contractResponse(c *gin.Context, contract *model.Contract) gin.H {
	total, approved, pending, err := h.store.CountProofs(c.Request.Context(), contract.ID)
	if err != nil {
		total, approved, pending = 0, 0, 0
	}

	return gin.H{
		"id":               contract.ID,
		"creator_id":       contract.CreatorID,
		"creator_nickname": contract.CreatorNickname,
		"title":            contract.Title,
		"goal":             contract.Goal,
		"reward":           contract.Reward,
		"penalty":          contract.Penalty,
		"one_off":          contract.OneOff,
		"start_date":       contract.StartDate.Format(time.RFC3339),
		"end_date":         contract.EndDate.Format(time.RFC3339),
		"target_proofs":    contract.TargetProofs,
		"status":           contract.Status,
		"supervisors":      contract.Supervisors,
		"period_percent":   progress.ForContract(contract, time.Now()),
		"total_proofs":     total,
		"approved_proofs":  approved,
		"pending_proofs":   pending,
		"created_at":       contract.CreatedAt.Format(time.RFC3339),
		"updated_at":       contract.UpdatedAt.Format(time.RFC3339),
	}
}
