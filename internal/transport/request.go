package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/url"
	"sort"

	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/types"
)

// Request describes one API call relative to the client's base URL.
// At most one of Body and Form is set.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Form   *Form
}

// Form is a multipart body: text fields plus file parts.
type Form struct {
	Fields map[string]string
	Files  []FilePart
}

// FilePart is one file of a multipart body.
type FilePart struct {
	Field string
	File  types.File
}

// NewForm creates a form from text fields, skipping empty values.
func NewForm(fields map[string]string) *Form {
	f := &Form{Fields: make(map[string]string, len(fields))}
	for k, v := range fields {
		if v != "" {
			f.Fields[k] = v
		}
	}
	return f
}

// AddFile appends a file part under field.
func (f *Form) AddFile(field string, file types.File) *Form {
	f.Files = append(f.Files, FilePart{Field: field, File: file})
	return f
}

// payload is a fully buffered request body, so a request can be replayed
// byte for byte after a session refresh.
type payload struct {
	data        []byte
	contentType string
}

func (p payload) reader() io.Reader {
	if p.data == nil {
		return nil
	}
	return bytes.NewReader(p.data)
}

func (r Request) encode() (payload, error) {
	switch {
	case r.Form != nil:
		return r.Form.encode()
	case r.Body != nil:
		data, err := json.Marshal(r.Body)
		if err != nil {
			return payload{}, errors.WrapParse("json", "request body", err)
		}
		return payload{data: data, contentType: "application/json"}, nil
	}
	return payload{}, nil
}

func (f *Form) encode() (payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(f.Fields))
	for k := range f.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, f.Fields[k]); err != nil {
			return payload{}, errors.WrapIO("write", "multipart field "+k, err)
		}
	}

	for _, part := range f.Files {
		if part.File.Content == nil {
			return payload{}, errors.NewValidationError(part.Field, part.File.Name, "file has no content")
		}
		fw, err := w.CreateFormFile(part.Field, part.File.Name)
		if err != nil {
			return payload{}, errors.WrapIO("write", "multipart file "+part.File.Name, err)
		}
		if _, err := io.Copy(fw, part.File.Content); err != nil {
			return payload{}, errors.WrapIO("read", part.File.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return payload{}, errors.WrapIO("write", "multipart body", err)
	}
	return payload{data: buf.Bytes(), contentType: w.FormDataContentType()}, nil
}
