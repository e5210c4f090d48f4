package pcd

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedHeader is returned when the PCD header cannot be parsed.
	ErrMalformedHeader = errors.New("malformed pcd header")

	// ErrUnsupportedFormat is returned for PCD encodings or field types this package cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported pcd format")
)

// DataKind is the encoding of the point records of a PCD file
type DataKind int

const (
	// Ascii stores one point per line, fields separated by spaces.
	Ascii DataKind = iota
	// Binary stores packed little endian records.
	Binary
	// BinaryCompressed is recognized in headers but cannot be decoded.
	BinaryCompressed
)

func (k DataKind) String() string {
	switch k {
	case Ascii:
		return "ascii"
	case Binary:
		return "binary"
	case BinaryCompressed:
		return "binary_compressed"
	}
	return ""
}

// ParseDataKind parses the value of the DATA header entry
func ParseDataKind(value string) (DataKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "ascii":
		return Ascii, nil
	case "binary":
		return Binary, nil
	case "binary_compressed":
		return BinaryCompressed, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedFormat, "data kind %q", value)
}

// Header holds the metadata preceding the point records
type Header struct {
	Version   string
	Fields    []string
	Size      []int
	Type      []string
	Count     []int
	Width     int
	Height    int
	Viewpoint []float64
	Points    int
	Data      DataKind
}

// Stride returns the size in bytes of a binary record
func (h *Header) Stride() int {
	stride := 0
	for i := range h.Fields {
		stride += h.Size[i] * h.Count[i]
	}
	return stride
}

// fieldOffset returns the position of the first value of the named field, counted in values for ascii
// records and in bytes for binary records. ok is false when the field is absent.
func (h *Header) fieldOffset(name string, bytes bool) (offset int, index int, ok bool) {
	for i, f := range h.Fields {
		if f == name {
			return offset, i, true
		}
		if bytes {
			offset += h.Size[i] * h.Count[i]
		} else {
			offset += h.Count[i]
		}
	}
	return 0, 0, false
}

// reads header lines up to and including DATA
func readHeader(r *bufio.Reader) (*Header, error) {
	h := &Header{}
	hasData := false

	for !hasData {
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return nil, errors.Wrap(ErrMalformedHeader, "missing DATA entry")
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		tokens := strings.Fields(line)
		key, values := strings.ToUpper(tokens[0]), tokens[1:]
		switch key {
		case "VERSION":
			h.Version = strings.Join(values, " ")
		case "FIELDS":
			h.Fields = values
		case "SIZE":
			if h.Size, err = parseInts(values); err != nil {
				return nil, errors.Wrapf(ErrMalformedHeader, "SIZE: %v", err)
			}
		case "TYPE":
			h.Type = make([]string, len(values))
			for i, v := range values {
				h.Type[i] = strings.ToUpper(v)
			}
		case "COUNT":
			if h.Count, err = parseInts(values); err != nil {
				return nil, errors.Wrapf(ErrMalformedHeader, "COUNT: %v", err)
			}
		case "WIDTH":
			if h.Width, err = parseSingleInt(values); err != nil {
				return nil, errors.Wrapf(ErrMalformedHeader, "WIDTH: %v", err)
			}
		case "HEIGHT":
			if h.Height, err = parseSingleInt(values); err != nil {
				return nil, errors.Wrapf(ErrMalformedHeader, "HEIGHT: %v", err)
			}
		case "VIEWPOINT":
			h.Viewpoint = make([]float64, len(values))
			for i, v := range values {
				if h.Viewpoint[i], err = strconv.ParseFloat(v, 64); err != nil {
					return nil, errors.Wrapf(ErrMalformedHeader, "VIEWPOINT: %v", err)
				}
			}
		case "POINTS":
			if h.Points, err = parseSingleInt(values); err != nil {
				return nil, errors.Wrapf(ErrMalformedHeader, "POINTS: %v", err)
			}
		case "DATA":
			if len(values) != 1 {
				return nil, errors.Wrapf(ErrMalformedHeader, "DATA: %q", line)
			}
			if h.Data, err = ParseDataKind(values[0]); err != nil {
				return nil, err
			}
			hasData = true
		default:
			return nil, errors.Wrapf(ErrMalformedHeader, "unknown entry %q", key)
		}
	}

	return h, h.validate()
}

func (h *Header) validate() error {
	if len(h.Fields) == 0 {
		return errors.Wrap(ErrMalformedHeader, "no FIELDS")
	}
	// COUNT is optional and defaults to 1 per field
	if h.Count == nil {
		h.Count = make([]int, len(h.Fields))
		for i := range h.Count {
			h.Count[i] = 1
		}
	}
	if len(h.Size) != len(h.Fields) || len(h.Type) != len(h.Fields) || len(h.Count) != len(h.Fields) {
		return errors.Wrapf(ErrMalformedHeader, "FIELDS/SIZE/TYPE/COUNT lengths differ: %d/%d/%d/%d",
			len(h.Fields), len(h.Size), len(h.Type), len(h.Count))
	}
	for i := range h.Fields {
		if h.Count[i] < 1 {
			return errors.Wrapf(ErrMalformedHeader, "COUNT of field %q", h.Fields[i])
		}
		switch h.Size[i] {
		case 1, 2, 4, 8:
		default:
			return errors.Wrapf(ErrMalformedHeader, "SIZE %d of field %q", h.Size[i], h.Fields[i])
		}
	}
	if h.Points == 0 && h.Width > 0 {
		height := h.Height
		if height == 0 {
			height = 1
		}
		h.Points = h.Width * height
	}
	if h.Points < 0 || h.Width < 0 || h.Height < 0 {
		return errors.Wrapf(ErrMalformedHeader, "POINTS %d", h.Points)
	}
	return nil
}

func parseInts(values []string) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func parseSingleInt(values []string) (int, error) {
	if len(values) != 1 {
		return 0, errors.Errorf("expected one value, got %d", len(values))
	}
	return strconv.Atoi(values[0])
}
