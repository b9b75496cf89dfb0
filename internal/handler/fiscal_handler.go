package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fiscalis/internal/fiscal"
	"fiscalis/internal/igs"
	"fiscalis/internal/middleware"
	"fiscalis/internal/service"
	"fiscalis/pkg/response"

	"github.com/gin-gonic/gin"
)

type FiscalHandler struct {
	fiscalService service.FiscalService
}

func NewFiscalHandler(fiscalService service.FiscalService) *FiscalHandler {
	return &FiscalHandler{fiscalService: fiscalService}
}

func (h *FiscalHandler) RegisterRoutes(router *gin.RouterGroup) {
	profile := router.Group("/api/clients/:id/fiscal")
	{
		profile.GET("", middleware.RequireRole("admin", "manager", "collaborator"), h.GetProfile)
		profile.PUT("/igs/assessment", middleware.RequireRole("admin", "manager"), h.SetAssessment)
		profile.PUT("/igs/payments", middleware.RequireRole("admin", "manager", "collaborator"), h.RecordPayment)
		profile.PUT("/obligations/:type", middleware.RequireRole("admin", "manager", "collaborator"), h.SetObligationStatus)
		profile.PUT("/attestation", middleware.RequireRole("admin", "manager", "collaborator"), h.SetAttestation)
	}

	fiscalGroup := router.Group("/api/fiscal")
	{
		fiscalGroup.GET("/expiring-attestations", middleware.RequireRole("admin", "manager", "collaborator"), h.GetExpiringAttestations)
		fiscalGroup.GET("/compliance", middleware.RequireRole("admin", "manager"), h.GetComplianceOverview)
	}
}

// GetProfile returns a client's full fiscal profile
// @Summary      Get fiscal profile
// @Description  Returns the client's obligation statuses, IGS ledger and attestation state
// @Tags         fiscal
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  response.Response{data=service.FiscalProfileResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/clients/{id}/fiscal [get]
func (h *FiscalHandler) GetProfile(c *gin.Context) {
	profile, err := h.fiscalService.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeFiscalError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, profile))
}

// SetAssessment records the client's annual revenue and CGA membership, recomputing the IGS due
// @Summary      Set IGS assessment
// @Description  Classifies the client's annual revenue into its IGS bracket and applies the CGA reduction
// @Tags         fiscal
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Client ID"
// @Param        payload  body      service.SetAssessmentRequest  true  "Assessment Payload"
// @Success      200      {object}  response.Response{data=service.FiscalProfileResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/clients/{id}/fiscal/igs/assessment [put]
func (h *FiscalHandler) SetAssessment(c *gin.Context) {
	var req service.SetAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	profile, err := h.fiscalService.SetAssessment(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		writeFiscalError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, profile))
}

// RecordPayment records a quarterly IGS payment
// @Summary      Record IGS payment
// @Description  Records (or corrects) the payment for one quarter; re-entering a quarter replaces its previous amount
// @Tags         fiscal
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Client ID"
// @Param        payload  body      service.RecordPaymentRequest  true  "Payment Payload"
// @Success      200      {object}  response.Response{data=service.FiscalProfileResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/clients/{id}/fiscal/igs/payments [put]
func (h *FiscalHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	profile, err := h.fiscalService.RecordPayment(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		writeFiscalError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, profile))
}

// SetObligationStatus toggles one obligation's applicability or settlement
// @Summary      Set obligation status
// @Description  Marks an obligation applicable/not-applicable or settled/unsettled for the client
// @Tags         fiscal
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                              true  "Client ID"
// @Param        type     path      string                              true  "Obligation type (patente, bail, taxe_fonciere, dsf, darp, igs, tva, cnps)"
// @Param        payload  body      service.SetObligationStatusRequest  true  "Status Payload"
// @Success      200      {object}  response.Response{data=service.FiscalProfileResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/clients/{id}/fiscal/obligations/{type} [put]
func (h *FiscalHandler) SetObligationStatus(c *gin.Context) {
	var req service.SetObligationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	profile, err := h.fiscalService.SetObligationStatus(c.Request.Context(), c.Param("id"), c.Param("type"), req, currentUserID(c))
	if err != nil {
		writeFiscalError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, profile))
}

// SetAttestation records a non-redevance attestation issue date
// @Summary      Set attestation
// @Description  Records the attestation's creation date (DD/MM/YYYY); the validity end is derived (3 months)
// @Tags         fiscal
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Client ID"
// @Param        payload  body      service.SetAttestationRequest  true  "Attestation Payload"
// @Success      200      {object}  response.Response{data=service.FiscalProfileResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/clients/{id}/fiscal/attestation [put]
func (h *FiscalHandler) SetAttestation(c *gin.Context) {
	var req service.SetAttestationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	profile, err := h.fiscalService.SetAttestation(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		writeFiscalError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, profile))
}

// GetExpiringAttestations lists clients whose attestation is expired or about to expire
// @Summary      List expiring attestations
// @Description  Returns clients whose attestation has days remaining at or below the threshold, soonest first
// @Tags         fiscal
// @Security     BearerAuth
// @Produce      json
// @Param        threshold_days  query     int  false  "Expiry window in days (default 30)"
// @Success      200             {object}  response.Response{data=[]service.ExpiringAttestationResponse}
// @Failure      500             {object}  response.Response
// @Router       /api/fiscal/expiring-attestations [get]
func (h *FiscalHandler) GetExpiringAttestations(c *gin.Context) {
	threshold, err := strconv.Atoi(c.DefaultQuery("threshold_days", strconv.Itoa(fiscal.BadgeThresholdDays)))
	if err != nil || threshold < 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "threshold_days must be a non-negative integer"))
		return
	}

	expiring, err := h.fiscalService.GetExpiringAttestations(c.Request.Context(), time.Now(), threshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, expiring))
}

// GetComplianceOverview summarises unsettled obligations across the portfolio
// @Summary      Compliance overview
// @Description  Lists clients with unpaid IGS, unpaid patente or unfiled DSF, and counts expiring attestations
// @Tags         fiscal
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.ComplianceOverviewResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/fiscal/compliance [get]
func (h *FiscalHandler) GetComplianceOverview(c *gin.Context) {
	overview, err := h.fiscalService.GetComplianceOverview(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, overview))
}

// writeFiscalError maps domain errors onto HTTP statuses.
func writeFiscalError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, fiscal.ErrNotApplicable):
		status = http.StatusConflict
	case errors.Is(err, fiscal.ErrUnknownObligation),
		errors.Is(err, igs.ErrNegativeRevenue),
		errors.Is(err, igs.ErrNegativeAmount),
		errors.Is(err, igs.ErrInvalidQuarter):
		status = http.StatusBadRequest
	case strings.Contains(err.Error(), "not found"):
		status = http.StatusNotFound
	}
	c.JSON(status, response.Error(status, err.Error()))
}
