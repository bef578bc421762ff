package upload

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	platformerrors "alejo-lab-api/internal/platform/errors"
	"alejo-lab-api/internal/platform/logging"
)

// FieldName is the multipart field carrying the image.
const FieldName = "image"

// DefaultFilename is used when the client sent no filename.
const DefaultFilename = "image"

const (
	CodeFileMissing          = "FILE_MISSING"
	CodeUnsupportedFormat    = "UNSUPPORTED_FORMAT"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeFileProcessingFailed = "FILE_PROCESSING_FAILED"
)

var (
	allowedTypes = map[string]struct{}{
		"image/jpeg": {},
		"image/png":  {},
		"image/webp": {},
	}
	allowedExtensions = map[string]struct{}{
		".jpg":  {},
		".jpeg": {},
		".png":  {},
		".webp": {},
	}
)

// Image is one uploaded file, owned by a single request and never persisted.
type Image struct {
	Data        []byte
	ContentType string
	Filename    string
	Size        int64
}

// UploadName returns the filename to forward upstream.
func (img *Image) UploadName() string {
	if img == nil || strings.TrimSpace(img.Filename) == "" {
		return DefaultFilename
	}
	return img.Filename
}

// Validator checks declared content type and extension.
// The bytes are sniffed for diagnostics only; a mismatch is logged, never rejected.
type Validator struct {
	logger *logging.Logger
}

func NewValidator(logger *logging.Logger) *Validator {
	return &Validator{logger: logger}
}

// Validate returns nil, FILE_MISSING or UNSUPPORTED_FORMAT.
func (v *Validator) Validate(img *Image) error {
	if img == nil {
		return MissingFile()
	}

	ct := normalizeContentType(img.ContentType)
	ext := strings.ToLower(filepath.Ext(img.Filename))
	_, typeOK := allowedTypes[ct]
	_, extOK := allowedExtensions[ext]
	if !typeOK || !extOK {
		return platformerrors.Coded(
			platformerrors.KindClientInput,
			"upload.validate",
			CodeUnsupportedFormat,
			"Formato no soportado. Usa JPG/PNG/WebP.",
			nil,
		).WithField("mimetype", ct)
	}

	if len(img.Data) > 0 {
		if detected := mimetype.Detect(img.Data); !detected.Is(ct) {
			v.logger.WarnTag("UPLOAD", "declared type does not match content",
				"declared", ct,
				"detected", detected.String(),
				"filename", img.Filename,
			)
		}
	}
	return nil
}

// MissingFile is returned when the multipart form has no image field.
func MissingFile() error {
	return platformerrors.Coded(
		platformerrors.KindClientInput,
		"upload.validate",
		CodeFileMissing,
		fmt.Sprintf("Falta el archivo %q.", FieldName),
		nil,
	)
}

// TooLarge is returned when the body exceeds the configured cap.
func TooLarge(maxMB int, cause error) error {
	return platformerrors.Coded(
		platformerrors.KindClientInput,
		"upload.read",
		CodePayloadTooLarge,
		fmt.Sprintf("La imagen excede el tamaño máximo permitido (%dMB).", maxMB),
		cause,
	)
}

// ProcessingFailed covers malformed multipart bodies.
func ProcessingFailed(cause error) error {
	return platformerrors.Coded(
		platformerrors.KindClientInput,
		"upload.read",
		CodeFileProcessingFailed,
		"Error al procesar el archivo.",
		cause,
	)
}

func normalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}
