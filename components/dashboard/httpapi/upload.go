package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

// DefaultMaxUploadBytes caps upload bodies.
const DefaultMaxUploadBytes int64 = 10 << 20

// UploadFileField is the multipart field carrying the file.
const UploadFileField = "file"

// UploadFile is an upload body extracted from a request.
type UploadFile struct {
	Filename string
	Data     []byte
}

// ParseDataset validates a dataset path segment.
func ParseDataset(raw string) (metrics.Dataset, error) {
	dataset := metrics.Dataset(strings.TrimSpace(raw))
	if !dataset.Valid() {
		return "", fmt.Errorf("%w: unknown dataset %q", ErrBadRequest, raw)
	}
	return dataset, nil
}

// ReadUpload extracts the file from a raw or multipart body. Raw bodies take
// their name from filename, falling back to "<dataset>.csv".
func ReadUpload(contentType string, body []byte, filename string, dataset metrics.Dataset) (UploadFile, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err == nil && strings.HasPrefix(mediaType, "multipart/") {
		return readMultipart(body, params["boundary"])
	}
	if len(body) == 0 {
		return UploadFile{}, fmt.Errorf("%w: empty upload", ErrBadRequest)
	}
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		name = string(dataset) + ".csv"
	}
	return UploadFile{Filename: name, Data: body}, nil
}

func readMultipart(body []byte, boundary string) (UploadFile, error) {
	if boundary == "" {
		return UploadFile{}, fmt.Errorf("%w: multipart boundary missing", ErrBadRequest)
	}
	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return UploadFile{}, fmt.Errorf("%w: multipart field %q missing", ErrBadRequest, UploadFileField)
		}
		if err != nil {
			return UploadFile{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		if part.FormName() != UploadFileField {
			part.Close()
			continue
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return UploadFile{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		if len(data) == 0 {
			return UploadFile{}, fmt.Errorf("%w: empty upload", ErrBadRequest)
		}
		return UploadFile{Filename: filepath.Base(part.FileName()), Data: data}, nil
	}
}
