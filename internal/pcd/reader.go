package pcd

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ecopia-map/planeseg/internal/data"
)

// maxPreallocatedPoints bounds the capacity reserved from the POINTS entry before any record is read
const maxPreallocatedPoints = 1 << 20

// names of the PCD fields mapped to the attributes of data.Point, in record order
var pointFields = []string{"x", "y", "z", "intensity", "normal_x", "normal_y", "normal_z", "curvature"}

// ReadFile reads the points of the PCD file at path
func ReadFile(path string) (*Header, []data.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot open %s", path)
	}
	defer f.Close()

	h, points, err := Read(f)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot read %s", path)
	}
	return h, points, nil
}

// Read decodes a PCD stream with ascii or binary records. Fields are matched by name; the ones that are
// missing are left to zero and unknown fields are ignored. Points with a non finite x, y or z are skipped,
// as PCL uses NaN to mark invalid measurements.
func Read(r io.Reader) (*Header, []data.Point, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, nil, err
	}
	if _, _, ok := h.fieldOffset("x", false); !ok {
		return nil, nil, errors.Wrap(ErrMalformedHeader, "no x field")
	}

	var points []data.Point
	switch h.Data {
	case Ascii:
		points, err = readAscii(br, h)
	case Binary:
		points, err = readBinary(br, h)
	default:
		return nil, nil, errors.Wrapf(ErrUnsupportedFormat, "data %s", h.Data)
	}
	if err != nil {
		return nil, nil, err
	}

	return h, points, nil
}

func readAscii(r *bufio.Reader, h *Header) ([]data.Point, error) {
	columns := make([]int, len(pointFields))
	numColumns := 0
	for _, c := range h.Count {
		numColumns += c
	}
	for i, name := range pointFields {
		columns[i] = -1
		if offset, _, ok := h.fieldOffset(name, false); ok {
			columns[i] = offset
		}
	}

	points := make([]data.Point, 0, preallocated(h.Points))
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() && line < h.Points {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		line++

		tokens := strings.Fields(text)
		if len(tokens) < numColumns {
			return nil, errors.Wrapf(ErrMalformedHeader, "record %d has %d values, expected %d", line, len(tokens), numColumns)
		}

		var values [8]float64
		for i, column := range columns {
			if column < 0 {
				continue
			}
			v, err := strconv.ParseFloat(tokens[column], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "record %d field %s", line, pointFields[i])
			}
			values[i] = v
		}
		if p, ok := newPoint(values); ok {
			points = append(points, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading ascii records")
	}
	if line < h.Points {
		return nil, errors.Wrapf(io.ErrUnexpectedEOF, "read %d of %d records", line, h.Points)
	}

	return points, nil
}

type binaryField struct {
	offset int
	size   int
	kind   string
}

func readBinary(r *bufio.Reader, h *Header) ([]data.Point, error) {
	fields := make([]*binaryField, len(pointFields))
	for i, name := range pointFields {
		offset, index, ok := h.fieldOffset(name, true)
		if !ok {
			continue
		}
		f := &binaryField{offset: offset, size: h.Size[index], kind: h.Type[index]}
		if _, err := decodeValue(make([]byte, f.size), f); err != nil {
			return nil, err
		}
		fields[i] = f
	}

	stride := h.Stride()
	record := make([]byte, stride)
	points := make([]data.Point, 0, preallocated(h.Points))
	for n := 0; n < h.Points; n++ {
		if _, err := io.ReadFull(r, record); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, errors.Wrapf(err, "record %d of %d", n, h.Points)
		}

		var values [8]float64
		for i, f := range fields {
			if f == nil {
				continue
			}
			values[i], _ = decodeValue(record[f.offset:f.offset+f.size], f)
		}
		if p, ok := newPoint(values); ok {
			points = append(points, p)
		}
	}

	return points, nil
}

func decodeValue(b []byte, f *binaryField) (float64, error) {
	switch {
	case f.kind == "F" && f.size == 4:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case f.kind == "F" && f.size == 8:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	case f.kind == "I" && f.size == 1:
		return float64(int8(b[0])), nil
	case f.kind == "I" && f.size == 2:
		return float64(int16(binary.LittleEndian.Uint16(b))), nil
	case f.kind == "I" && f.size == 4:
		return float64(int32(binary.LittleEndian.Uint32(b))), nil
	case f.kind == "I" && f.size == 8:
		return float64(int64(binary.LittleEndian.Uint64(b))), nil
	case f.kind == "U" && f.size == 1:
		return float64(b[0]), nil
	case f.kind == "U" && f.size == 2:
		return float64(binary.LittleEndian.Uint16(b)), nil
	case f.kind == "U" && f.size == 4:
		return float64(binary.LittleEndian.Uint32(b)), nil
	case f.kind == "U" && f.size == 8:
		return float64(binary.LittleEndian.Uint64(b)), nil
	}
	return 0, errors.Wrapf(ErrUnsupportedFormat, "field type %s size %d", f.kind, f.size)
}

func newPoint(v [8]float64) (data.Point, bool) {
	for _, c := range v[:3] {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return data.Point{}, false
		}
	}
	return data.NewPoint(v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7]), true
}

func preallocated(points int) int {
	if points > maxPreallocatedPoints {
		return maxPreallocatedPoints
	}
	return points
}
