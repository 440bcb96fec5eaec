package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	apperrors "craftconnect/internal/common/errors"
)

const (
	audioField         = "audio"
	webmExtension      = ".webm"
	multipartOverhead  = 1 << 20
	defaultUploadLimit = 10 << 20
)

type audioUpload struct {
	Data     []byte
	MimeType string
	Filename string
}

func baseMimeType(mimeType string) string {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return strings.ToLower(mt)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// isAllowedAudio matches the part's media type against the allow-list, ignoring parameters.
// A file named *.webm is accepted whatever its declared type.
func (s *Server) isAllowedAudio(mimeType, filename string) bool {
	if _, ok := s.allowed[baseMimeType(mimeType)]; ok {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), webmExtension)
}

func (s *Server) uploadLimit() int64 {
	if s.cfg.Upload.MaxFileSize > 0 {
		return s.cfg.Upload.MaxFileSize
	}
	return defaultUploadLimit
}

// readAudioUpload streams the multipart body and returns the first "audio" file part.
// The type check runs before any bytes of the part are buffered.
func (s *Server) readAudioUpload(w http.ResponseWriter, r *http.Request) (*audioUpload, error) {
	limit := s.uploadLimit()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apperrors.NewAudioRequiredError()
	}

	var upload *audioUpload
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, uploadReadError(err, limit)
		}

		if part.FormName() != audioField || part.FileName() == "" || upload != nil {
			_, _ = io.Copy(io.Discard, part)
			_ = part.Close()
			continue
		}

		declared := part.Header.Get("Content-Type")
		if !s.isAllowedAudio(declared, part.FileName()) {
			_ = part.Close()
			return nil, apperrors.NewInvalidFileTypeError(baseMimeType(declared))
		}

		var buf bytes.Buffer
		n, err := io.Copy(&buf, io.LimitReader(part, limit+1))
		_ = part.Close()
		if err != nil {
			return nil, uploadReadError(err, limit)
		}
		if n > limit {
			return nil, tooLargeError(limit)
		}

		mimeType := baseMimeType(declared)
		if _, ok := s.allowed[mimeType]; !ok {
			mimeType = "audio/webm"
		}
		upload = &audioUpload{Data: buf.Bytes(), MimeType: mimeType, Filename: part.FileName()}
	}

	if upload == nil || len(upload.Data) == 0 {
		return nil, apperrors.NewAudioRequiredError()
	}
	return upload, nil
}

func uploadReadError(err error, limit int64) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return tooLargeError(limit)
	}
	return apperrors.NewFileUploadError(err.Error()).WithCause(err)
}

func tooLargeError(limit int64) error {
	return apperrors.NewFileUploadError(fmt.Sprintf("File too large. Maximum size is %dMB.", limit>>20))
}
