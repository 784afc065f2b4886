package service

import (
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/qs3c/chathub_go_server/config"
	"github.com/qs3c/chathub_go_server/internal/pkg/oss"
)

var (
	ErrFileTooLarge     = errors.New("文件过大")
	ErrInvalidExtension = errors.New("不支持的文件格式")
	ErrOSSNotConfigured = errors.New("对象存储未配置，无法上传附件")
)

// UploadService 提问附件上传：校验后转存 OSS，返回可引用的 URL
type UploadService struct {
	ossClient *oss.Client
	cfg       *config.Config
}

func NewUploadService(ossClient *oss.Client, cfg *config.Config) *UploadService {
	return &UploadService{
		ossClient: ossClient,
		cfg:       cfg,
	}
}

// UploadAttachment 上传单个附件
func (s *UploadService) UploadAttachment(userID int64, file io.Reader, filename string, size int64) (string, error) {
	if s.ossClient == nil {
		return "", ErrOSSNotConfigured
	}
	if size > s.cfg.Upload.MaxSize {
		return "", ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !s.extAllowed(ext) {
		return "", ErrInvalidExtension
	}

	// 限制读取长度，防止 Content-Length 不可信
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.Upload.MaxSize+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > s.cfg.Upload.MaxSize {
		return "", ErrFileTooLarge
	}

	return s.ossClient.UploadAttachment(userID, data, ext)
}

// MaxAttachments 单轮提问允许携带的附件数
func (s *UploadService) MaxAttachments() int {
	return s.cfg.Upload.MaxAttachments
}

func (s *UploadService) extAllowed(ext string) bool {
	for _, allowed := range s.cfg.Upload.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
