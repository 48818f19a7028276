package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vibestack/internal/bucket"
	"vibestack/internal/models"
)

const maxUploadBytes = 10 << 20 // 10 MB

func (h *Handler) uploadFile(c *gin.Context) {
	if h.bucket == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "object storage not configured"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+1<<20)
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open file failed"})
		return
	}
	defer f.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := bucket.NewKey(file.Filename)
	meta, err := h.bucket.Put(c.Request.Context(), key, f, bucket.Meta{ContentType: contentType})
	if err != nil {
		h.logger.Error("upload failed", slog.String("key", key), slog.String("err", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.Response[models.Upload]{Data: models.Upload{
		URL:  h.publicPrefix + key,
		Key:  key,
		Size: meta.Size,
		Type: contentType,
	}})
}

func (h *Handler) downloadFile(c *gin.Context) {
	if h.bucket == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "object storage not configured"})
		return
	}
	obj, err := h.bucket.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		if errors.Is(err, bucket.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Object Not Found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer obj.Body.Close()

	header := c.Writer.Header()
	header.Set("Content-Type", obj.Meta.ContentType)
	if obj.Meta.ETag != "" {
		header.Set("ETag", obj.Meta.ETag)
	}
	if obj.Meta.Size > 0 {
		header.Set("Content-Length", strconv.FormatInt(obj.Meta.Size, 10))
	}
	header.Set("Cache-Control", "public, max-age=31536000")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, obj.Body); err != nil {
		h.logger.Warn("download interrupted", slog.String("key", obj.Key), slog.String("err", err.Error()))
	}
}
