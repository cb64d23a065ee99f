package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/intellicoi/coi-backend/internal/services"
)

type PortalHandler struct {
	tokenService       services.VendorTokenService
	certificateService services.CertificateService
}

func NewPortalHandler(tokenService services.VendorTokenService, certificateService services.CertificateService) *PortalHandler {
	return &PortalHandler{tokenService: tokenService, certificateService: certificateService}
}

// GetPortal resolves a vendor portal token to the vendor, their latest
// certificate and its gap rows. Invalid or expired tokens read as not found
// so the token namespace is not probeable.
func (ph *PortalHandler) GetPortal(c *gin.Context) {
	tokenString := c.Param("token")

	token, err := ph.tokenService.Validate(c.Request.Context(), tokenString)
	if err != nil {
		RespondError(c, http.StatusNotFound, "invalid_token", err)
		return
	}

	payload := gin.H{"vendor": token.Vendor}

	certs, err := ph.certificateService.ListVendorCertificates(c.Request.Context(), token.VendorID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if len(certs) > 0 {
		latest := certs[0]
		gaps, err := ph.certificateService.GetCertificateGaps(c.Request.Context(), latest.ID)
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		payload["certificate"] = latest
		payload["gaps"] = gaps
	}

	RespondOK(c, payload)
}
