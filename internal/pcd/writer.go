package pcd

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/ecopia-map/planeseg/internal/data"
)

// WriteFile writes the points to a new PCD file at path, truncating any existing file
func WriteFile(path string, points []data.Point, kind DataKind) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", path)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	if err = Write(f, points, kind); err != nil {
		return errors.Wrapf(err, "cannot write %s", path)
	}
	return nil
}

// Write encodes the points as an unorganized PCD v0.7 cloud with the eight point fields stored as float32
func Write(w io.Writer, points []data.Point, kind DataKind) error {
	if kind != Ascii && kind != Binary {
		return errors.Wrapf(ErrUnsupportedFormat, "data %s", kind)
	}

	bw := bufio.NewWriter(w)
	if err := writeHeader(bw, len(points), kind); err != nil {
		return err
	}

	var err error
	if kind == Ascii {
		err = writeAscii(bw, points)
	} else {
		err = writeBinary(bw, points)
	}
	if err != nil {
		return err
	}

	return bw.Flush()
}

func writeHeader(w *bufio.Writer, n int, kind DataKind) error {
	repeat := func(value string) string {
		values := make([]string, len(pointFields))
		for i := range values {
			values[i] = value
		}
		return strings.Join(values, " ")
	}

	_, err := fmt.Fprintf(w,
		"# .PCD v0.7 - Point Cloud Data file format\n"+
			"VERSION 0.7\n"+
			"FIELDS %s\n"+
			"SIZE %s\n"+
			"TYPE %s\n"+
			"COUNT %s\n"+
			"WIDTH %d\n"+
			"HEIGHT 1\n"+
			"VIEWPOINT 0 0 0 1 0 0 0\n"+
			"POINTS %d\n"+
			"DATA %s\n",
		strings.Join(pointFields, " "), repeat("4"), repeat("F"), repeat("1"), n, n, kind)
	return err
}

func writeAscii(w *bufio.Writer, points []data.Point) error {
	for _, p := range points {
		values := pointValues(p)
		for i, v := range values {
			if i > 0 {
				if err := w.WriteByte(' '); err != nil {
					return err
				}
			}
			if _, err := w.WriteString(formatFloat32(v)); err != nil {
				return err
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

func writeBinary(w *bufio.Writer, points []data.Point) error {
	record := make([]byte, 4*len(pointFields))
	for _, p := range points {
		for i, v := range pointValues(p) {
			binary.LittleEndian.PutUint32(record[4*i:], math.Float32bits(v))
		}
		if _, err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func pointValues(p data.Point) [8]float32 {
	return [8]float32{
		float32(p.X), float32(p.Y), float32(p.Z), float32(p.Intensity),
		float32(p.NormalX), float32(p.NormalY), float32(p.NormalZ), float32(p.Curvature),
	}
}

// formatFloat32 returns the shortest decimal that reads back to the same float32
func formatFloat32(v float32) string {
	switch {
	case math.IsNaN(float64(v)):
		return "nan"
	case math.IsInf(float64(v), 1):
		return "inf"
	case math.IsInf(float64(v), -1):
		return "-inf"
	}
	return decimal.NewFromFloat32(v).String()
}
