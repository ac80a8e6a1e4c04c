package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/http/response"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/ctxutil"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/services"
)

type RandomizationHandler struct {
	svc services.RandomizationService
}

func NewRandomizationHandler(svc services.RandomizationService) *RandomizationHandler {
	return &RandomizationHandler{svc: svc}
}

// schemeRequest is the client-writable part of a scheme. Status, audit
// columns and ids are owned by the server.
type schemeRequest struct {
	StudyID               int                           `json:"studyId"`
	Name                  string                        `json:"name"`
	Description           string                        `json:"description"`
	RandomizationType     domain.RandomizationType      `json:"randomizationType"`
	BlindingLevel         domain.BlindingLevel          `json:"blindingLevel"`
	BlockSize             int                           `json:"blockSize"`
	BlockSizeVaried       bool                          `json:"blockSizeVaried"`
	BlockSizesList        []int                         `json:"blockSizesList"`
	AllocationRatios      []domain.ArmRatio             `json:"allocationRatios"`
	StratificationFactors []domain.StratificationFactor `json:"stratificationFactors"`
	StudyGroupClassID     *int                          `json:"studyGroupClassId"`
	TotalSlots            int                           `json:"totalSlots"`
	SlotPolicy            domain.SlotPolicy             `json:"slotPolicy"`
	DrugKitManagement     bool                          `json:"drugKitManagement"`
	DrugKitPrefix         string                        `json:"drugKitPrefix"`
	SiteSpecific          bool                          `json:"siteSpecific"`
}

func (r schemeRequest) toScheme() *domain.Scheme {
	return &domain.Scheme{
		StudyID:           r.StudyID,
		Name:              strings.TrimSpace(r.Name),
		Description:       r.Description,
		RandomizationType: r.RandomizationType,
		BlindingLevel:     r.BlindingLevel,
		BlockSize:         r.BlockSize,
		BlockSizeVaried:   r.BlockSizeVaried,
		BlockSizes:        r.BlockSizesList,
		Arms:              r.AllocationRatios,
		Factors:           r.StratificationFactors,
		StudyGroupClassID: r.StudyGroupClassID,
		TotalSlots:        r.TotalSlots,
		SlotPolicy:        r.SlotPolicy,
		DrugKitManagement: r.DrugKitManagement,
		DrugKitPrefix:     r.DrugKitPrefix,
		SiteSpecific:      r.SiteSpecific,
	}
}

type randomizeRequest struct {
	StratumValues map[string]string `json:"stratumValues"`
}

// POST /api/randomization/configs
func (h *RandomizationHandler) SaveConfig(c *gin.Context) {
	var req schemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sc, err := h.svc.SaveConfig(c.Request.Context(), req.toScheme(), ctxutil.ActingUserID(c.Request.Context()))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"config": sc})
}

// PATCH /api/randomization/configs/:configId
func (h *RandomizationHandler) UpdateConfig(c *gin.Context) {
	configID, ok := configIDParam(c)
	if !ok {
		return
	}
	var patch domain.SchemePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sc, err := h.svc.UpdateConfig(c.Request.Context(), configID, patch, ctxutil.ActingUserID(c.Request.Context()))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"config": sc})
}

// GET /api/randomization/configs/:configId
func (h *RandomizationHandler) GetConfigByID(c *gin.Context) {
	configID, ok := configIDParam(c)
	if !ok {
		return
	}
	view, err := h.svc.GetConfigByID(c.Request.Context(), configID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"config": view})
}

// GET /api/studies/:studyId/randomization/config
func (h *RandomizationHandler) GetConfig(c *gin.Context) {
	studyID, ok := intParam(c, "studyId")
	if !ok {
		return
	}
	view, err := h.svc.GetConfig(c.Request.Context(), studyID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"config": view})
}

// POST /api/randomization/configs/:configId/generate
func (h *RandomizationHandler) GenerateList(c *gin.Context) {
	configID, ok := configIDParam(c)
	if !ok {
		return
	}
	res, err := h.svc.GenerateList(c.Request.Context(), configID, ctxutil.ActingUserID(c.Request.Context()))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/randomization/configs/:configId/activate
func (h *RandomizationHandler) ActivateConfig(c *gin.Context) {
	configID, ok := configIDParam(c)
	if !ok {
		return
	}
	sc, err := h.svc.ActivateConfig(c.Request.Context(), configID, ctxutil.ActingUserID(c.Request.Context()))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"config": sc})
}

// POST /api/randomization/configs/test
func (h *RandomizationHandler) TestConfig(c *gin.Context) {
	var req schemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	preview, err := h.svc.TestConfig(c.Request.Context(), req.toScheme())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"preview": preview})
}

// GET /api/randomization/configs/:configId/stats
func (h *RandomizationHandler) GetListStats(c *gin.Context) {
	configID, ok := configIDParam(c)
	if !ok {
		return
	}
	stats, err := h.svc.GetListStats(c.Request.Context(), configID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"stats": stats})
}

// POST /api/studies/:studyId/subjects/:studySubjectId/randomize
func (h *RandomizationHandler) RandomizeSubject(c *gin.Context) {
	studyID, ok := intParam(c, "studyId")
	if !ok {
		return
	}
	subjectID, ok := intParam(c, "studySubjectId")
	if !ok {
		return
	}
	var req randomizeRequest
	// An unstratified scheme needs no body.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.svc.RandomizeSubject(c.Request.Context(), domain.ClaimInput{
		StudyID:        studyID,
		StudySubjectID: subjectID,
		ActorID:        ctxutil.ActingUserID(c.Request.Context()),
		StratumValues:  req.StratumValues,
	})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"randomization": res})
}

func configIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("configId")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_config_id", errors.New("invalid configId: "+raw))
		return 0, false
	}
	return uint(id), true
}

func intParam(c *gin.Context, name string) (int, bool) {
	raw := c.Param(name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+name, errors.New("invalid "+name+": "+raw))
		return 0, false
	}
	return id, true
}
