package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/spigell/interview-caller/internal/calls"
	"github.com/spigell/interview-caller/internal/candidates"
	"github.com/spigell/interview-caller/internal/webhook"
)

var errProviderDisabled = errors.New("call provider is not configured")

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) receiveWebhook(c *gin.Context) {
	p, err := webhook.Decode(c.Request.Body)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	res, err := s.deps.Dispatcher.Handle(c.Request.Context(), p)
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}

	body := gin.H{
		"success":      true,
		"execution_id": res.ExecutionID,
		"candidate_id": res.CandidateID,
		"call_status":  res.CallStatus,
		"stage":        res.Stage,
	}
	if res.Status != "" {
		body["status"] = res.Status
		body["message"] = fmt.Sprintf("Candidate %d updated to %s", res.CandidateID, res.Status)
	} else {
		body["status"] = res.CallStatus
		body["message"] = fmt.Sprintf("Call status received: %s", res.CallStatus)
	}
	if res.ExtractedData != nil {
		body["extracted_data"] = res.ExtractedData
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) webhookStatus(c *gin.Context) {
	count, err := s.deps.Executions.Count()
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"webhook_configured": true,
		"execution_mappings": count,
		"message":            "Webhook endpoint is ready",
	})
}

func (s *Server) listWebhooks(c *gin.Context) {
	index, err := s.deps.Archive.Index()
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"webhooks": index,
		"total":    len(index),
	})
}

func (s *Server) listCandidates(c *gin.Context) {
	doc, err := s.deps.Candidates.Snapshot()
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) addCandidate(c *gin.Context) {
	var draft candidates.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	id, err := s.deps.Candidates.Add(draft)
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Candidate added successfully",
		"candidate_id": id,
	})
}

func (s *Server) deleteCandidate(c *gin.Context) {
	id, ok := s.candidateID(c)
	if !ok {
		return
	}
	if err := s.deps.Candidates.Delete(id); err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Candidate %d deleted successfully", id),
	})
}

func (s *Server) resetCandidate(c *gin.Context) {
	id, ok := s.candidateID(c)
	if !ok {
		return
	}
	restore, _ := strconv.ParseBool(c.DefaultQuery("restore", "false"))

	if err := s.deps.Candidates.ResetToPending(id, restore); err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Candidate %d status reset to pending", id),
	})
}

func (s *Server) resetStatuses(c *gin.Context) {
	count, err := s.deps.Candidates.ResetAllToPending()
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     fmt.Sprintf("Reset %d candidate statuses to pending", count),
		"reset_count": count,
	})
}

type reschedulingSlotsRequest struct {
	ReschedulingSlots []int `json:"reschedulingSlots"`
}

func (s *Server) setReschedulingSlots(c *gin.Context) {
	id, ok := s.candidateID(c)
	if !ok {
		return
	}

	var req reschedulingSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if req.ReschedulingSlots == nil {
		req.ReschedulingSlots = []int{}
	}

	if err := s.deps.Candidates.SetReschedulingSlots(id, req.ReschedulingSlots); err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           fmt.Sprintf("Rescheduling slots updated for candidate %d", id),
		"reschedulingSlots": req.ReschedulingSlots,
	})
}

func (s *Server) placeCall(c *gin.Context) {
	if s.deps.Placer == nil {
		s.fail(c, http.StatusServiceUnavailable, errProviderDisabled)
		return
	}

	var req calls.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	placement, err := s.deps.Placer.Place(c.Request.Context(), req)
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"message":          "Call initiated successfully",
		"executionId":      placement.ExecutionID,
		"alternativeSlots": placement.AlternativeSlots,
	})
}

func (s *Server) callStatus(c *gin.Context) {
	if s.deps.Fetcher == nil {
		s.fail(c, http.StatusServiceUnavailable, errProviderDisabled)
		return
	}

	details, err := s.deps.Fetcher.GetExecution(c.Request.Context(), c.Param("executionId"))
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "details": details})
}

func (s *Server) checkCall(c *gin.Context) {
	if s.deps.Checker == nil {
		s.fail(c, http.StatusServiceUnavailable, errProviderDisabled)
		return
	}

	res, err := s.deps.Checker.Check(c.Request.Context(), c.Param("executionId"))
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}

	status := string(res.Status)
	if status == "" {
		status = res.CallStatus
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"execution_id": res.ExecutionID,
		"candidate_id": res.CandidateID,
		"call_status":  res.CallStatus,
		"status":       status,
	})
}

func (s *Server) candidateID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("invalid candidate id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}
