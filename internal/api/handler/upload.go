package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/chathub_go_server/internal/api/middleware"
	"github.com/qs3c/chathub_go_server/internal/pkg/response"
	"github.com/qs3c/chathub_go_server/internal/service"
)

type UploadHandler struct {
	uploadService *service.UploadService
}

func NewUploadHandler(uploadService *service.UploadService) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
	}
}

// UploadAttachment 上传提问附件，返回可在提问中引用的 URL
// POST /api/v1/upload/attachment
func (h *UploadHandler) UploadAttachment(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.ParamError(c, "请选择要上传的文件")
		return
	}
	defer file.Close()

	url, err := h.uploadService.UploadAttachment(userID, file, header.Filename, header.Size)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileTooLarge):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrInvalidExtension):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrOSSNotConfigured):
			response.UnavailableError(c, err.Error())
		default:
			response.ServerError(c, "附件上传失败")
		}
		return
	}

	response.Success(c, gin.H{"url": url})
}
