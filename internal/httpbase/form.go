package httpbase

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const DefaultFileField = "file"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Form is a buffered multipart payload ready to be posted.
type Form struct {
	body        bytes.Buffer
	contentType string
	fileName    string
	file        []byte
}

// NewFileForm builds a multipart payload with a single file part. A nil
// content produces a form with no parts.
func NewFileForm(field, filename string, content []byte) (*Form, error) {
	if field == "" {
		field = DefaultFileField
	}

	f := &Form{}
	w := multipart.NewWriter(&f.body)

	if content != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(field), quoteEscaper.Replace(filename)))
		header.Set("Content-Type", mimetype.Detect(content).String())

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create form part: %w", err)
		}
		if _, err := part.Write(content); err != nil {
			return nil, fmt.Errorf("failed to write form part: %w", err)
		}

		f.fileName = filename
		f.file = content
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}
	f.contentType = w.FormDataContentType()

	return f, nil
}

func (f *Form) ContentType() string {
	return f.contentType
}

func (f *Form) FileName() string {
	return f.fileName
}

func (f *Form) Len() int {
	return f.body.Len()
}

func (f *Form) Bytes() []byte {
	return f.body.Bytes()
}

// File returns the raw file content, nil for an empty form.
func (f *Form) File() []byte {
	return f.file
}
