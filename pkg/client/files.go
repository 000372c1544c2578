package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"consent-records/internal/platform/httpclient"
)

// File es un adjunto a subir.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// UploadFiles sube los archivos al registro en un solo request multipart (campo "files").
func (c *Client) UploadFiles(ctx context.Context, recordID string, files []File) ([]Attachment, error) {
	if strings.TrimSpace(recordID) == "" {
		return nil, &ValidationError{Field: "recordId", Err: errors.New("record id is required")}
	}
	if len(files) == 0 {
		return nil, &ValidationError{Field: "files", Err: errors.New("no files provided")}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		if strings.TrimSpace(f.Name) == "" || f.Body == nil {
			return nil, &ValidationError{Field: "files", Err: errors.New("file name and content are required")}
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("client: multipart: %w", err)
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return nil, fmt.Errorf("client: read %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("client: multipart: %w", err)
	}

	var out []Attachment
	err := c.do(ctx, httpclient.Request{
		Method:      http.MethodPost,
		Path:        "/api/files/upload/" + url.PathEscape(recordID),
		Body:        &buf,
		ContentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Files(ctx context.Context, recordID string) ([]Attachment, error) {
	var out []Attachment
	if err := c.getJSON(ctx, "/api/files/record/"+url.PathEscape(recordID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DownloadURL devuelve una URL firmada de vida corta.
func (c *Client) DownloadURL(ctx context.Context, attachmentID string) (Download, error) {
	var out Download
	if err := c.getJSON(ctx, "/api/files/download/"+url.PathEscape(attachmentID), &out); err != nil {
		return Download{}, err
	}
	return out, nil
}

func (c *Client) DeleteFile(ctx context.Context, attachmentID string) error {
	return c.do(ctx, requestFor(http.MethodDelete, "/api/files/"+url.PathEscape(attachmentID)), nil)
}
