// Package attachments stores files uploaded with responses and turns the
// stored references back into URLs a browser can display.
package attachments

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

type Store interface {
	// Upload saves data and returns the reference to keep on the response.
	Upload(ctx context.Context, data []byte, pathHint string) (string, error)
	// DisplayURL accepts a reference issued by Upload, a data URI or raw
	// base64 content.
	DisplayURL(reference string) string
}

// Decode reads an uploaded payload, either a data URI or bare base64.
func Decode(payload string) (data []byte, contentType string, err error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, "", errors.New("attachments: empty payload")
	}

	encoded := payload
	if strings.HasPrefix(payload, "data:") {
		meta, body, ok := strings.Cut(payload[len("data:"):], ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, "", errors.New("attachments: only base64 data URIs are supported")
		}
		contentType = strings.TrimSuffix(meta, ";base64")
		encoded = body
	}

	data, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", errors.Wrap(err, "attachments: decode base64")
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

func dataURI(data []byte, contentType string) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// inlineURL handles references that carry their own content.
func inlineURL(reference string) (string, bool) {
	if strings.HasPrefix(reference, "data:") {
		return reference, true
	}
	if data, err := base64.StdEncoding.DecodeString(reference); err == nil && len(data) > 0 {
		return dataURI(data, http.DetectContentType(data)), true
	}
	return "", false
}

// InlineStore keeps attachments inside the response as data URIs. It is
// used when no object store is configured.
type InlineStore struct{}

func (InlineStore) Upload(ctx context.Context, data []byte, pathHint string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("attachments: empty file")
	}
	return dataURI(data, http.DetectContentType(data)), nil
}

func (InlineStore) DisplayURL(reference string) string {
	if url, ok := inlineURL(reference); ok {
		return url
	}
	return reference
}
