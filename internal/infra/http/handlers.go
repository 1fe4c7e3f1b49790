package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"seald/internal/domain"
	"seald/internal/usecase"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type sealRequest struct {
	PayloadBase64 string `json:"payload_base64"`
	ContentType   string `json:"content_type,omitempty"`
	Actor         string `json:"actor,omitempty"`
}

type sealContainerRequest struct {
	Items []sealItemInput `json:"items"`
	Actor string          `json:"actor,omitempty"`
}

type sealItemInput struct {
	PayloadBase64 string `json:"payload_base64"`
	ContentType   string `json:"content_type,omitempty"`
}

type verifyRequest struct {
	PayloadBase64 string `json:"payload_base64,omitempty"`
}

type deleteRequest struct {
	Reason string `json:"reason,omitempty"`
	Actor  string `json:"actor,omitempty"`
}

type artifactResponse struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`
	PayloadRef  string `json:"payload_ref,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type,omitempty"`
	State       string `json:"state"`
	AnchorRef   string `json:"anchor_ref,omitempty"`
	AnchoredAt  string `json:"anchored_at,omitempty"`
	ContainerID string `json:"container_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type sealResponse struct {
	Artifact     artifactResponse `json:"artifact"`
	Deduplicated bool             `json:"deduplicated"`
	Queued       bool             `json:"queued"`
}

type containerResponse struct {
	ID                   string   `json:"id"`
	MemberIDs            []string `json:"member_ids"`
	AggregateFingerprint string   `json:"aggregate_fingerprint"`
	State                string   `json:"state"`
	AnchorRef            string   `json:"anchor_ref,omitempty"`
	AnchoredAt           string   `json:"anchored_at,omitempty"`
	CreatedAt            string   `json:"created_at"`
}

type sealContainerResponse struct {
	Container containerResponse  `json:"container"`
	Members   []artifactResponse `json:"members"`
	Queued    bool               `json:"queued"`
}

func (s *Server) handleSeal(c *gin.Context) {
	var req sealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	payload, err := base64.StdEncoding.DecodeString(req.PayloadBase64)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_PAYLOAD_ENCODING", "payload_base64 is not valid base64")
		return
	}
	receipt, err := s.seal.Seal(c.Request.Context(), usecase.SealRequest{
		Payload:     payload,
		ContentType: req.ContentType,
		Actor:       req.Actor,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if receipt.Deduplicated {
		status = http.StatusOK
	}
	c.JSON(status, sealResponse{
		Artifact:     buildArtifactResponse(receipt.Artifact),
		Deduplicated: receipt.Deduplicated,
		Queued:       receipt.Queued,
	})
}

func (s *Server) handleSealContainer(c *gin.Context) {
	var req sealContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	items := make([]usecase.SealItem, 0, len(req.Items))
	for _, item := range req.Items {
		payload, err := base64.StdEncoding.DecodeString(item.PayloadBase64)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_PAYLOAD_ENCODING", "payload_base64 is not valid base64")
			return
		}
		items = append(items, usecase.SealItem{Payload: payload, ContentType: item.ContentType})
	}
	receipt, err := s.seal.SealContainer(c.Request.Context(), usecase.SealContainerRequest{
		Items: items,
		Actor: req.Actor,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	members := make([]artifactResponse, 0, len(receipt.Members))
	for _, member := range receipt.Members {
		members = append(members, buildArtifactResponse(member))
	}
	c.JSON(http.StatusCreated, sealContainerResponse{
		Container: buildContainerResponse(receipt.Container),
		Members:   members,
		Queued:    receipt.Queued,
	})
}

func (s *Server) handleVerifyArtifact(c *gin.Context) {
	var supplied []byte
	if c.Request.ContentLength > 0 {
		var req verifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
			return
		}
		if req.PayloadBase64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(req.PayloadBase64)
			if err != nil {
				writeErrorCode(c, http.StatusBadRequest, "INVALID_PAYLOAD_ENCODING", "payload_base64 is not valid base64")
				return
			}
			supplied = decoded
		}
	}
	result, err := s.verifier.VerifyArtifact(c.Request.Context(), c.Param("id"), supplied)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleVerifyContainer(c *gin.Context) {
	result, err := s.verifier.VerifyContainer(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleProofBundle(c *gin.Context) {
	bundle, err := s.proofs.ProofBundle(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

func (s *Server) handleTrail(c *gin.Context) {
	trail, err := s.proofs.Trail(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": trail})
}

func (s *Server) handleDelete(c *gin.Context) {
	var req deleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
			return
		}
	}
	if err := s.eraser.SoftDelete(c.Request.Context(), c.Param("id"), req.Reason, req.Actor); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) enforceRateLimit(c *gin.Context) {
	if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
		c.Next()
		return
	}
	window := s.rateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	decision, err := s.rateLimiter.Allow(c.Request.Context(), c.ClientIP(), s.rateLimitRequests, window)
	if err != nil {
		// Fail open: a broken limiter must not take the API down.
		c.Next()
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	if !decision.ResetAt.IsZero() {
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
	}
	if !decision.Allowed {
		writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
		c.Abort()
		return
	}
	c.Next()
}

func buildArtifactResponse(artifact domain.Artifact) artifactResponse {
	out := artifactResponse{
		ID:          artifact.ID,
		Fingerprint: artifact.Fingerprint,
		PayloadRef:  artifact.PayloadRef,
		SizeBytes:   artifact.SizeBytes,
		ContentType: artifact.ContentType,
		State:       string(artifact.State),
		AnchorRef:   artifact.AnchorRef,
		ContainerID: artifact.ContainerID,
		CreatedAt:   artifact.CreatedAt.UTC().Format(time.RFC3339),
	}
	if artifact.AnchoredAt != nil {
		out.AnchoredAt = artifact.AnchoredAt.UTC().Format(time.RFC3339)
	}
	return out
}

func buildContainerResponse(container domain.Container) containerResponse {
	out := containerResponse{
		ID:                   container.ID,
		MemberIDs:            container.MemberIDs,
		AggregateFingerprint: container.AggregateFingerprint,
		State:                string(container.State),
		AnchorRef:            container.AnchorRef,
		CreatedAt:            container.CreatedAt.UTC().Format(time.RFC3339),
	}
	if container.AnchoredAt != nil {
		out.AnchoredAt = container.AnchoredAt.UTC().Format(time.RFC3339)
	}
	return out
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		status, code = http.StatusBadRequest, "EMPTY_PAYLOAD"
	case errors.Is(err, domain.ErrInvalidRequest):
		status, code = http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, domain.ErrPolicyDenied):
		status, code = http.StatusUnprocessableEntity, "POLICY_DENIED"
	case errors.Is(err, domain.ErrSealInProgress):
		status, code = http.StatusConflict, "SEAL_IN_PROGRESS"
	case errors.Is(err, domain.ErrAlreadyDeleted):
		status, code = http.StatusGone, "ALREADY_DELETED"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrAnchorUnavailable):
		status, code = http.StatusServiceUnavailable, "ANCHOR_UNAVAILABLE"
	case errors.Is(err, domain.ErrAnchorRejected):
		status, code = http.StatusBadGateway, "ANCHOR_REJECTED"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Code: code, Message: message})
}
