package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"kennapartner-api/internal/observability/metrics"
	"kennapartner-api/internal/storage"
)

// UploadPolicy bounds what the upload endpoints accept before any bytes are
// sent to the media host.
type UploadPolicy struct {
	MaxBytes     int64
	AllowedTypes []string
}

const defaultMaxUploadBytes = 10 << 20

func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxBytes: defaultMaxUploadBytes,
		AllowedTypes: []string{
			"image/jpeg",
			"image/png",
			"image/webp",
			"application/pdf",
		},
	}
}

func (p UploadPolicy) maxBytes() int64 {
	if p.MaxBytes > 0 {
		return p.MaxBytes
	}
	return defaultMaxUploadBytes
}

func (p UploadPolicy) allows(contentType string) bool {
	for _, allowed := range p.AllowedTypes {
		if contentType == allowed {
			return true
		}
	}
	return false
}

// uploadMedia validates the multipart payload and pushes it to the media
// host, writing the error envelope itself on failure. Validation problems are
// client errors; transport problems and a missing media configuration read as
// bad gateway.
func (h *Handler) uploadMedia(w http.ResponseWriter, r *http.Request, keyPrefix string) (string, bool) {
	data, contentType, err := h.readUpload(r)
	if err != nil {
		metrics.ObserveUpload("rejected")
		writeMessage(w, http.StatusBadRequest, err.Error())
		return "", false
	}

	if !h.Media.Enabled() {
		h.logger().Error("upload rejected, media storage not configured")
		metrics.ObserveUpload("unavailable")
		writeMessage(w, http.StatusBadGateway, "File upload is not available")
		return "", false
	}

	key := storage.ObjectKey(keyPrefix)
	fileURL, err := h.Media.Upload(r.Context(), key, contentType, data)
	if err != nil {
		h.logger().Error("media upload failed", "key", key, "error", err)
		metrics.ObserveUpload("failed")
		writeMessage(w, http.StatusBadGateway, "File upload failed")
		return "", false
	}
	metrics.ObserveUpload("stored")
	return fileURL, true
}

// readUpload extracts and validates the multipart "file" field.
func (h *Handler) readUpload(r *http.Request) ([]byte, string, error) {
	maxBytes := h.Uploads.maxBytes()
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes+4096)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, "", fmt.Errorf("file exceeds the %d byte limit", maxBytes)
		}
		return nil, "", errors.New("multipart file field is required")
	}
	defer file.Close()

	if header.Size > maxBytes {
		return nil, "", fmt.Errorf("file exceeds the %d byte limit", maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, "", errors.New("file could not be read")
	}
	if int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("file exceeds the %d byte limit", maxBytes)
	}
	if len(data) == 0 {
		return nil, "", errors.New("file is empty")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !h.Uploads.allows(contentType) {
		return nil, "", fmt.Errorf("file type %s is not allowed", contentType)
	}
	return data, contentType, nil
}
