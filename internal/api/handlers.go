package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-server/internal/domain"
)

// handleAssess runs the assessment workflow. When the request carries
// no visits, the patient's stored history is loaded instead.
func (s *Server) handleAssess(c *gin.Context) {
	var req domain.AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid request body", err.Error())
		return
	}
	if req.RequestID == "" {
		req.RequestID = c.GetString("request_id")
	}

	if len(req.Visits) == 0 && req.PatientID != "" {
		history, err := s.visits.History(c.Request.Context(), req.PatientID)
		if err != nil {
			s.log.WithError(err).WithField("patient_id", req.PatientID).Error("Failed to load visit history")
			s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to load visit history", "")
			return
		}
		req.Visits = history
	}

	resp, err := s.assessor.Assess(c.Request.Context(), &req)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			s.respondError(c, http.StatusBadRequest, domain.ErrValidation, vErr.Message, vErr.Field)
			return
		}
		s.log.WithError(err).Error("Assessment failed")
		s.respondError(c, http.StatusInternalServerError, domain.ErrAssessment, "Assessment failed", "")
		return
	}

	if !resp.Cached {
		s.hub.Broadcast(resp)
	}

	c.JSON(http.StatusOK, resp)
}

// handleGetHistory returns a patient's stored visits in insertion order.
func (s *Server) handleGetHistory(c *gin.Context) {
	patientID := c.Param("id")

	history, err := s.visits.History(c.Request.Context(), patientID)
	if err != nil {
		s.log.WithError(err).WithField("patient_id", patientID).Error("Failed to load visit history")
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to load visit history", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"patient_id": patientID,
		"count":      len(history),
		"visits":     history,
	})
}

// handleAddVisit appends one visit to a patient's history.
func (s *Server) handleAddVisit(c *gin.Context) {
	patientID := c.Param("id")

	var visit domain.Visit
	if err := c.ShouldBindJSON(&visit); err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			s.respondError(c, http.StatusBadRequest, domain.ErrValidation, vErr.Message, vErr.Field)
			return
		}
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid visit payload", err.Error())
		return
	}

	if err := s.visits.SaveVisit(c.Request.Context(), patientID, &visit); err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			s.respondError(c, http.StatusBadRequest, domain.ErrValidation, vErr.Message, vErr.Field)
			return
		}
		s.log.WithError(err).WithField("patient_id", patientID).Error("Failed to save visit")
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to save visit", "")
		return
	}

	count, err := s.visits.Count(c.Request.Context(), patientID)
	if err != nil {
		s.log.WithError(err).WithField("patient_id", patientID).Warn("Failed to count visits")
	}

	s.log.WithFields(logrus.Fields{
		"patient_id":  patientID,
		"visit_count": count,
	}).Info("Visit recorded")

	c.JSON(http.StatusCreated, gin.H{
		"patient_id": patientID,
		"count":      count,
	})
}

// handleGetAssessment returns a stored assessment by ID.
func (s *Server) handleGetAssessment(c *gin.Context) {
	id := c.Param("id")

	if s.assessments == nil {
		s.respondError(c, http.StatusNotFound, "NOT_FOUND", "Assessment storage is not configured", "")
		return
	}

	resp, err := s.assessments.GetAssessment(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, "NOT_FOUND", "Assessment not found", id)
			return
		}
		s.log.WithError(err).WithField("assessment_id", id).Error("Failed to load assessment")
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "Failed to load assessment", "")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// respondError writes a standardized error body.
func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	requestID := c.GetString("request_id")
	c.JSON(status, domain.NewAppError(code, message, details, requestID))
}
