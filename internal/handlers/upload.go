package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/intellicoi/coi-backend/internal/services"
)

type UploadHandler struct {
	certificateService services.CertificateService
}

func NewUploadHandler(certificateService services.CertificateService) *UploadHandler {
	return &UploadHandler{certificateService: certificateService}
}

// Upload accepts a multipart COI document plus vendor identity fields and
// starts the extraction pipeline.
func (uh *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "no_file", fmt.Errorf("no file provided"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}

	input := services.UploadCOIInput{
		VendorName:  c.PostForm("vendor_name"),
		VendorEmail: c.PostForm("vendor_email"),
		FileName:    fileHeader.Filename,
		MimeType:    fileHeader.Header.Get("Content-Type"),
		FileSize:    fileHeader.Size,
		Content:     content,
	}
	if raw := c.PostForm("vendor_id"); raw != "" {
		vendorID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			RespondError(c, http.StatusBadRequest, "invalid_vendor_id", parseErr)
			return
		}
		input.VendorID = &vendorID
	}

	result, err := uh.certificateService.UploadCOI(c.Request.Context(), input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"success":       true,
		"certificateId": result.CertificateID,
		"vendorId":      result.VendorID,
		"jobId":         result.JobID,
		"message":       "COI uploaded and processing started",
	})
}
