package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/intellicoi/coi-backend/internal/services"
)

type CertificateHandler struct {
	certificateService services.CertificateService
}

func NewCertificateHandler(certificateService services.CertificateService) *CertificateHandler {
	return &CertificateHandler{certificateService: certificateService}
}

func (ch *CertificateHandler) GetCertificate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_certificate_id", err)
		return
	}

	cert, err := ch.certificateService.GetCertificate(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	gaps, err := ch.certificateService.GetCertificateGaps(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"certificate": cert, "gaps": gaps})
}

func (ch *CertificateHandler) ListVendorCertificates(c *gin.Context) {
	vendorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_vendor_id", err)
		return
	}

	certs, err := ch.certificateService.ListVendorCertificates(c.Request.Context(), vendorID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"certificates": certs})
}
