package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/chathub_go_server/internal/api/middleware"
	"github.com/qs3c/chathub_go_server/internal/model/dto"
	"github.com/qs3c/chathub_go_server/internal/pkg/response"
	"github.com/qs3c/chathub_go_server/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GetProfile 获取个人信息
// GET /api/v1/user/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	info, err := h.userService.GetProfile(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserMissing) {
			response.NotFoundError(c, err.Error())
		} else {
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, info)
}

// UpdateProfile 更新个人信息
// PUT /api/v1/user/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	info, err := h.userService.UpdateProfile(userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrUsernameExists) {
			response.ParamError(c, err.Error())
		} else {
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, info)
}

// UploadAvatar 上传头像
// POST /api/v1/user/avatar
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		response.ParamError(c, "请选择头像文件")
		return
	}
	defer file.Close()

	avatarURL, err := h.userService.UploadAvatar(userID, file, header.Filename)
	if err != nil {
		response.ServerError(c, "头像上传失败")
		return
	}

	response.Success(c, gin.H{"avatar_url": avatarURL})
}

// SaveAPIKey 保存个人提供商密钥
// POST /api/v1/user/api-keys
func (h *UserHandler) SaveAPIKey(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.SaveAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.userService.SaveAPIKey(userID, &req); err != nil {
		if errors.Is(err, service.ErrUnknownProvider) {
			response.ParamError(c, err.Error())
		} else {
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "密钥已保存", nil)
}

// ListAPIKeys 个人密钥列表
// GET /api/v1/user/api-keys
func (h *UserHandler) ListAPIKeys(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	items, err := h.userService.ListAPIKeys(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// DeleteAPIKey 删除个人密钥
// DELETE /api/v1/user/api-keys/:id
func (h *UserHandler) DeleteAPIKey(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	keyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的密钥 ID")
		return
	}

	if err := h.userService.DeleteAPIKey(userID, keyID); err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "密钥已删除", nil)
}
