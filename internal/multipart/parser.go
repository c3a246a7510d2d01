// Package multipart decodes multipart/form-data request bodies into text
// fields and uploaded files.
//
// The parser works on raw bytes: it scans for boundary delimiters and never
// reinterprets file payloads as text, so binary uploads are kept verbatim.
package multipart

import (
	"bufio"
	"bytes"
	"fmt"
	"mime"
	"net/textproto"
	"strings"

	"github.com/atinyakov/fasogadget/internal/models"
)

// Part is one decoded part of a multipart body: either a TextField or a
// FileField.
type Part interface {
	// FieldName returns the form field name of the part.
	FieldName() string
}

// TextField is a regular form value. Value is trimmed of surrounding
// whitespace.
type TextField struct {
	Name  string
	Value string
}

// FieldName implements Part.
func (f TextField) FieldName() string { return f.Name }

// FileField is a part that declared a filename. Data holds the payload
// exactly as sent.
type FileField struct {
	Name        string
	FileName    string
	ContentType string
	Data        []byte
}

// FieldName implements Part.
func (f FileField) FieldName() string { return f.Name }

// Boundary extracts the boundary parameter from a multipart Content-Type.
func Boundary(contentType string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: content type: %v", models.ErrMalformedRequest, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return "", fmt.Errorf("%w: not a multipart body: %s", models.ErrMalformedRequest, mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", fmt.Errorf("%w: missing boundary", models.ErrMalformedRequest)
	}
	return boundary, nil
}

type state int

const (
	statePreamble state = iota
	stateHeaders
	stateBody
	stateDone
)

var (
	crlf       = []byte("\r\n")
	headersEnd = []byte("\r\n\r\n")
	closeMark  = []byte("--")
)

// Parse splits body into parts delimited by boundary.
//
// Parts without a Content-Disposition name are skipped. A body that never
// opens with the delimiter, or whose last part is not terminated by a
// delimiter, is rejected with models.ErrMalformedRequest.
func Parse(body []byte, boundary string) ([]Part, error) {
	if boundary == "" {
		return nil, fmt.Errorf("%w: missing boundary", models.ErrMalformedRequest)
	}
	delim := []byte("--" + boundary)
	// Every delimiter after the first one is preceded by CRLF which belongs
	// to the delimiter, not to the previous part's content.
	nextDelim := append(append([]byte{}, crlf...), delim...)

	var (
		parts  []Part
		header textproto.MIMEHeader
		pos    int
		st     = statePreamble
	)

	for st != stateDone {
		switch st {
		case statePreamble:
			idx := bytes.Index(body, delim)
			if idx < 0 {
				return nil, fmt.Errorf("%w: opening boundary not found", models.ErrMalformedRequest)
			}
			pos = idx + len(delim)
			var err error
			if st, pos, err = afterDelimiter(body, pos); err != nil {
				return nil, err
			}

		case stateHeaders:
			if bytes.HasPrefix(body[pos:], crlf) {
				// part without any header
				header = textproto.MIMEHeader{}
				pos += len(crlf)
				st = stateBody
				continue
			}
			end := bytes.Index(body[pos:], headersEnd)
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated part headers", models.ErrMalformedRequest)
			}
			h, err := readHeader(body[pos : pos+end])
			if err != nil {
				return nil, err
			}
			header = h
			pos += end + len(headersEnd)
			st = stateBody

		case stateBody:
			end := bytes.Index(body[pos:], nextDelim)
			if end < 0 {
				return nil, fmt.Errorf("%w: part not terminated by boundary", models.ErrMalformedRequest)
			}
			if p := newPart(header, body[pos:pos+end]); p != nil {
				parts = append(parts, p)
			}
			var err error
			if st, pos, err = afterDelimiter(body, pos+end+len(nextDelim)); err != nil {
				return nil, err
			}
		}
	}

	return parts, nil
}

// afterDelimiter inspects the bytes right after a delimiter: "--" closes the
// body, otherwise the rest of the line (transport padding) is skipped and a
// new part begins.
func afterDelimiter(body []byte, pos int) (state, int, error) {
	rest := body[pos:]
	if bytes.HasPrefix(rest, closeMark) {
		return stateDone, len(body), nil
	}
	eol := bytes.IndexByte(rest, '\n')
	if eol < 0 {
		return stateDone, pos, fmt.Errorf("%w: truncated body after boundary", models.ErrMalformedRequest)
	}
	if pad := bytes.TrimRight(rest[:eol], " \t\r"); len(pad) != 0 {
		return stateDone, pos, fmt.Errorf("%w: unexpected data after boundary", models.ErrMalformedRequest)
	}
	return stateHeaders, pos + eol + 1, nil
}

func readHeader(block []byte) (textproto.MIMEHeader, error) {
	buf := make([]byte, 0, len(block)+len(headersEnd))
	buf = append(append(buf, block...), headersEnd...)
	r := textproto.NewReader(bufio.NewReader(bytes.NewReader(buf)))
	h, err := r.ReadMIMEHeader()
	if err != nil {
		return nil, fmt.Errorf("%w: part headers: %v", models.ErrMalformedRequest, err)
	}
	return h, nil
}

func newPart(header textproto.MIMEHeader, content []byte) Part {
	disposition := header.Get("Content-Disposition")
	if disposition == "" {
		return nil
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return nil
	}
	name := params["name"]
	if name == "" {
		return nil
	}
	if filename, ok := params["filename"]; ok {
		data := make([]byte, len(content))
		copy(data, content)
		return FileField{
			Name:        name,
			FileName:    filename,
			ContentType: header.Get("Content-Type"),
			Data:        data,
		}
	}
	return TextField{Name: name, Value: strings.TrimSpace(string(content))}
}
