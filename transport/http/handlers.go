package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/starnotary/core"
	"github.com/layer-3/starnotary/service"
)

// RegistryHandlers contains HTTP handlers for the registry endpoints
type RegistryHandlers struct {
	registry *service.RegistryService
	logger   *slog.Logger
}

// NewRegistryHandlers creates new registry handlers
func NewRegistryHandlers(registry *service.RegistryService, logger *slog.Logger) *RegistryHandlers {
	return &RegistryHandlers{
		registry: registry,
		logger:   logger,
	}
}

type challengeResponse struct {
	Address          string `json:"address"`
	RequestTimeStamp string `json:"requestTimeStamp"`
	Message          string `json:"message"`
	ValidationWindow int64  `json:"validationWindow"`
}

type verificationStatus struct {
	challengeResponse
	MessageSignature string `json:"messageSignature"`
}

type verificationResponse struct {
	RegisterStar bool               `json:"registerStar"`
	Status       verificationStatus `json:"status"`
}

type starResponse struct {
	core.Star
	StoryDecoded string `json:"storyDecoded"`
}

type bodyResponse struct {
	Address string       `json:"address"`
	Star    starResponse `json:"star"`
}

type blockResponse struct {
	Hash              string `json:"hash"`
	Height            int64  `json:"height"`
	Body              any    `json:"body"`
	Time              string `json:"time"`
	PreviousBlockHash string `json:"previousBlockHash"`
}

func toChallengeResponse(s service.ChallengeStatus) challengeResponse {
	return challengeResponse{
		Address:          s.Address,
		RequestTimeStamp: strconv.FormatInt(s.RequestTimeStamp, 10),
		Message:          s.Message,
		ValidationWindow: s.ValidationWindow,
	}
}

// toBlockResponse adds the decoded story to star bodies. Other bodies, such as
// the genesis text, pass through untouched.
func toBlockResponse(b *core.Block) blockResponse {
	resp := blockResponse{
		Hash:              b.Hash,
		Height:            b.Height,
		Body:              b.Body,
		Time:              b.Time,
		PreviousBlockHash: b.PreviousBlockHash,
	}

	var sub core.Submission
	if err := json.Unmarshal(b.Body, &sub); err != nil || sub.Star == nil {
		return resp
	}
	decoded, err := core.DecodeStory(sub.Star.Story)
	if err != nil {
		return resp
	}
	resp.Body = bodyResponse{
		Address: sub.Address,
		Star:    starResponse{Star: *sub.Star, StoryDecoded: decoded},
	}
	return resp
}

// RequestValidation handles the challenge request
func (h *RegistryHandlers) RequestValidation(c *gin.Context) {
	var req struct {
		Address string `json:"address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "code": "invalid_request"})
		return
	}

	status, err := h.registry.RequestChallenge(c.Request.Context(), req.Address)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toChallengeResponse(status))
}

// ValidateSignature handles the signature verification request
func (h *RegistryHandlers) ValidateSignature(c *gin.Context) {
	var req struct {
		Address   string `json:"address"`
		Signature string `json:"signature"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "code": "invalid_request"})
		return
	}

	v, err := h.registry.VerifySignature(c.Request.Context(), req.Address, req.Signature)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, verificationResponse{
		RegisterStar: v.Grant == core.GrantUnconsumed,
		Status: verificationStatus{
			challengeResponse: toChallengeResponse(v.Status),
			MessageSignature:  "valid",
		},
	})
}

// RegisterStar handles the star registration request
func (h *RegistryHandlers) RegisterStar(c *gin.Context) {
	var req core.Submission
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "code": "invalid_request"})
		return
	}

	block, err := h.registry.RegisterStar(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBlockResponse(block))
}

// GetBlock returns the block at the requested height
func (h *RegistryHandlers) GetBlock(c *gin.Context) {
	param := c.Param("height")
	height, err := strconv.ParseInt(param, 10, 64)
	if err != nil || height < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "block " + param + " not found", "code": "not_found"})
		return
	}

	block, err := h.registry.GetBlock(c.Request.Context(), height)
	if errors.Is(err, core.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "block " + param + " not found", "code": "not_found"})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBlockResponse(block))
}

// SetValidationWindow overrides the process-wide validation window
func (h *RegistryHandlers) SetValidationWindow(c *gin.Context) {
	var req struct {
		ValidationWindow int64 `json:"validationWindow"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, core.ErrInvalidWindow)
		return
	}

	if err := h.registry.SetValidationWindow(req.ValidationWindow); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ValidateChain audits every block's hash and link
func (h *RegistryHandlers) ValidateChain(c *gin.Context) {
	bad, err := h.registry.ValidateChain(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if bad == nil {
		bad = []int64{}
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":  len(bad) == 0,
		"errors": bad,
	})
}

// Health reports liveness
func (h *RegistryHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps domain errors to status codes. Client mistakes get 4xx with
// the reason; backend faults get a generic 500.
func (h *RegistryHandlers) writeError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	code := "technical_error"
	errorMsg := "technical error"

	switch {
	case core.IsInputError(err):
		statusCode = http.StatusBadRequest
		code = "invalid_request"
		errorMsg = err.Error()
	case errors.Is(err, core.ErrNoChallengeIssued):
		statusCode = http.StatusBadRequest
		code = "no_challenge_issued"
		errorMsg = "You need to request for validation first, please use the path /requestValidation to request a validation message."
	case errors.Is(err, core.ErrWindowExpired):
		statusCode = http.StatusBadRequest
		code = "window_expired"
		errorMsg = "Your validation window has expired, please use the path /requestValidation again to request a new validation message."
	case errors.Is(err, core.ErrSignatureInvalid):
		statusCode = http.StatusBadRequest
		code = "signature_invalid"
		errorMsg = "The signature could not be verified."
	case errors.Is(err, core.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		code = "unauthorized"
		errorMsg = err.Error()
	case errors.Is(err, core.ErrAlreadyRegistered):
		statusCode = http.StatusForbidden
		code = "already_registered"
		errorMsg = "you are only allowed to register one star, and you already have"
	case errors.Is(err, core.ErrNotFound):
		statusCode = http.StatusNotFound
		code = "not_found"
		errorMsg = err.Error()
	default:
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}

	c.JSON(statusCode, gin.H{"error": errorMsg, "code": code})
}
