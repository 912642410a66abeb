package helpers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UploadConfig struct {
	MaxSizeBytes     int64
	AllowedMimeTypes []string
	UploadBasePath   string
}

var DefaultImageUploadConfig = UploadConfig{
	MaxSizeBytes: 5 * 1024 * 1024, // 5MB
	AllowedMimeTypes: []string{
		"image/jpeg",
		"image/png",
		"image/webp",
	},
	UploadBasePath: "./uploads/",
}

// SniffMimeType reads the first 512 bytes of an upload to detect its type.
func SniffMimeType(fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil {
		return "", err
	}
	return http.DetectContentType(buffer[:n]), nil
}

// UploadImage stores an image under <base>/<dir>/<uuid><ext> and returns its path.
func UploadImage(c *gin.Context, fileHeader *multipart.FileHeader, dir string, cfg UploadConfig) (string, error) {
	if fileHeader.Size > cfg.MaxSizeBytes {
		return "", fmt.Errorf("file size exceeds maximum limit of %d MB", cfg.MaxSizeBytes/(1024*1024))
	}

	mimeType, err := SniffMimeType(fileHeader)
	if err != nil {
		return "", err
	}
	if !slices.Contains(cfg.AllowedMimeTypes, mimeType) {
		return "", fmt.Errorf("invalid file type. Allowed types: %v", cfg.AllowedMimeTypes)
	}

	uploadPath := filepath.Join(cfg.UploadBasePath, dir)
	if err := os.MkdirAll(uploadPath, os.ModePerm); err != nil {
		return "", err
	}

	filename := uuid.New().String() + filepath.Ext(fileHeader.Filename)
	fullFilepath := filepath.Join(uploadPath, filename)
	if err := c.SaveUploadedFile(fileHeader, fullFilepath); err != nil {
		return "", err
	}

	return fullFilepath, nil
}

func DeleteFile(filePath string) error {
	if filePath == "" {
		return nil
	}
	return os.Remove(filePath)
}
