package server

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"hill-valley/internal/media"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	// Multipart overhead allowed on top of the file limit for the other fields.
	formOverheadBytes = 64 << 10
	multipartMemory   = 8 << 20
)

var (
	errMediaUnavailable = errors.New("media storage is not configured")
	errUploadTooLarge   = errors.New("upload is too large")
	errUploadMissing    = errors.New("file is required")
)

type uploadSpec struct {
	Field     string
	Prefix    string
	MaxBytes  int64
	Extension func(contentType string) (string, error)
}

// parseUploadForm caps the request body and parses the multipart form,
// answering 413 or 400 itself when that fails.
func parseUploadForm(c *gin.Context, maxBytes int64) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+formOverheadBytes)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			writeError(c, http.StatusRequestEntityTooLarge, errUploadTooLarge.Error())
			return false
		}
		writeError(c, http.StatusBadRequest, "expected a multipart form")
		return false
	}
	return true
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

// saveUpload stores the multipart file named by opts.Field. When the client
// sends no usable content type it is sniffed from the first bytes.
func (s *Server) saveUpload(c *gin.Context, opts uploadSpec) (media.Object, error) {
	if s.media == nil {
		return media.Object{}, errMediaUnavailable
	}
	header, err := c.FormFile(opts.Field)
	if err != nil {
		if isTooLarge(err) {
			return media.Object{}, errUploadTooLarge
		}
		if errors.Is(err, http.ErrMissingFile) {
			return media.Object{}, errUploadMissing
		}
		return media.Object{}, err
	}
	if header.Size > opts.MaxBytes {
		return media.Object{}, errUploadTooLarge
	}
	file, err := header.Open()
	if err != nil {
		return media.Object{}, err
	}
	defer file.Close()

	contentType, body, err := detectContentType(header, file)
	if err != nil {
		return media.Object{}, err
	}
	ext, err := opts.Extension(contentType)
	if err != nil {
		return media.Object{}, err
	}
	return s.media.Put(c.Request.Context(), media.NewKey(opts.Prefix, ext), contentType, io.LimitReader(body, opts.MaxBytes))
}

func detectContentType(header *multipart.FileHeader, file multipart.File) (string, io.Reader, error) {
	contentType := media.BaseType(header.Header.Get("Content-Type"))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType, file, nil
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]
	return media.BaseType(http.DetectContentType(head)), io.MultiReader(bytes.NewReader(head), file), nil
}

func uploadStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, errUploadMissing):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, media.ErrUnsupportedContent):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, errMediaUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	}
	return http.StatusInternalServerError, "failed to store upload"
}

func (s *Server) writeUploadError(c *gin.Context, err error) {
	status, message := uploadStatus(err)
	if status == http.StatusInternalServerError {
		writeServerError(c, message, err)
		return
	}
	writeError(c, status, message)
}

// removeObject deletes a stored object, logging failures.
func (s *Server) removeObject(c *gin.Context, key string) {
	if key == "" || s.media == nil {
		return
	}
	if err := s.media.Delete(c.Request.Context(), key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to delete media object")
	}
}

func (s *Server) handleMedia(c *gin.Context) {
	if s.media == nil {
		writeError(c, http.StatusNotFound, "not found")
		return
	}
	key := c.Param("key")
	if len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}
	reader, obj, err := s.media.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) || errors.Is(err, media.ErrInvalidKey) {
			writeError(c, http.StatusNotFound, "not found")
			return
		}
		writeServerError(c, "failed to open media", err)
		return
	}
	defer reader.Close()
	c.Header("Cache-Control", "public, max-age=3600")
	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, reader, nil)
}
