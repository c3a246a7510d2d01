package multipart

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/fasogadget/internal/models"
	"github.com/google/uuid"
)

// DefaultMaxBytes bounds the whole request body held in memory.
const DefaultMaxBytes = 10 << 20

// FileStore persists uploaded files.
type FileStore interface {
	// Save stores data under name and returns the public path or URL the
	// file will be served from.
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// StoredFile describes an uploaded file after it was persisted.
type StoredFile struct {
	// OriginalName is the filename sent by the client.
	OriginalName string
	// FileName is the generated storage name.
	FileName string
	// Path is the public path or URL of the stored file.
	Path string
}

// Form is the decoded content of a multipart body.
type Form struct {
	// Fields maps field names to trimmed text values.
	Fields map[string]string
	// File is the last uploaded file, nil when the body carried none.
	File *StoredFile
}

// Has reports whether the field was present in the body.
func (f *Form) Has(name string) bool {
	_, ok := f.Fields[name]
	return ok
}

// Decoder reads multipart bodies and persists the uploaded files.
type Decoder struct {
	store    FileStore
	maxBytes int64
	now      func() time.Time
	suffix   func() string
}

// NewDecoder returns a Decoder writing files to store. A non-positive
// maxBytes selects DefaultMaxBytes.
func NewDecoder(store FileStore, maxBytes int64) *Decoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Decoder{
		store:    store,
		maxBytes: maxBytes,
		now:      time.Now,
		suffix:   randomSuffix,
	}
}

// Decode buffers r, splits it on the boundary declared in contentType and
// persists every part that carries a non-empty filename. When several files
// are present only the last one is reported in Form.File.
func (d *Decoder) Decode(ctx context.Context, r io.Reader, contentType string) (*Form, error) {
	boundary, err := Boundary(contentType)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(r, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", models.ErrMalformedRequest, err)
	}
	if int64(len(body)) > d.maxBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", models.ErrMalformedRequest, d.maxBytes)
	}

	parts, err := Parse(body, boundary)
	if err != nil {
		return nil, err
	}

	form := &Form{Fields: make(map[string]string, len(parts))}
	for _, p := range parts {
		switch p := p.(type) {
		case TextField:
			form.Fields[p.Name] = p.Value
		case FileField:
			if p.FileName == "" {
				// file input left empty by the browser
				continue
			}
			stored, err := d.save(ctx, p)
			if err != nil {
				return nil, err
			}
			form.File = stored
		}
	}
	return form, nil
}

func (d *Decoder) save(ctx context.Context, f FileField) (*StoredFile, error) {
	if d.store == nil {
		return nil, fmt.Errorf("multipart: no file store configured")
	}
	name := d.StorageName(f.FileName)
	path, err := d.store.Save(ctx, name, f.ContentType, f.Data)
	if err != nil {
		return nil, fmt.Errorf("save upload %q: %w", f.FileName, err)
	}
	return &StoredFile{OriginalName: f.FileName, FileName: name, Path: path}, nil
}

// StorageName derives a collision-resistant file name from the current time,
// a random suffix and the lower-cased extension of original.
func (d *Decoder) StorageName(original string) string {
	ext := strings.ToLower(filepath.Ext(strings.ReplaceAll(original, `\`, "/")))
	return strconv.FormatInt(d.now().UnixMilli(), 10) + "-" + d.suffix() + ext
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}
