package export

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	statement "billing-desk/internal/statement/domain"
)

// Format names an export rendering.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// ParseFormat validates a format name.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	case FormatHTML, "print":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q", statement.ErrInvalidFormat, value)
	}
}

// Renderer turns a statement view into a complete document.
type Renderer interface {
	Format() Format
	ContentType() string
	Render(view statement.View) ([]byte, error)
}

// Document is a rendered export ready to be sent or saved.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Registry dispatches a format to its renderer.
type Registry struct {
	renderers map[Format]Renderer
}

// NewRegistry builds the spreadsheet, PDF and print renderers for a profile.
func NewRegistry(profile Profile) *Registry {
	return NewRegistryWith(NewXLSXRenderer(profile), NewPDFRenderer(profile), NewPrintRenderer(profile))
}

// NewRegistryWith registers the given renderers.
func NewRegistryWith(renderers ...Renderer) *Registry {
	r := &Registry{renderers: make(map[Format]Renderer, len(renderers))}
	for _, renderer := range renderers {
		r.renderers[renderer.Format()] = renderer
	}
	return r
}

// Render renders the view. The document is produced in memory; on error nothing is returned.
func (r *Registry) Render(view statement.View, format Format) (Document, error) {
	renderer, ok := r.renderers[format]
	if !ok {
		return Document{}, fmt.Errorf("%w: %q", statement.ErrInvalidFormat, format)
	}
	data, err := renderer.Render(view)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Filename:    Filename(view.ClientName, view.GeneratedAt, string(format)),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

// Filename builds statement_<client-name>_<YYYY-MM-DD>.<ext>.
func Filename(clientName string, date time.Time, ext string) string {
	return fmt.Sprintf("statement_%s_%s.%s", sanitizeName(clientName), date.Format(dateLayout), ext)
}

func sanitizeName(name string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\' || r == '"' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			if !space {
				b.WriteRune('_')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "client"
	}
	return out
}

// ContentDisposition builds an attachment header with an ASCII fallback filename and an
// RFC 5987 filename* that keeps non-ASCII client names intact.
func ContentDisposition(filename string) string {
	fallback := make([]rune, 0, len(filename))
	for _, r := range filename {
		if r > unicode.MaxASCII || r == '"' || r == '\\' || unicode.IsControl(r) {
			r = '_'
		}
		fallback = append(fallback, r)
	}
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, string(fallback), encodeRFC5987(filename))
}

func encodeRFC5987(value string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
