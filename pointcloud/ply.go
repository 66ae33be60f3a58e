package pointcloud

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// PLYType is the storage format of a ply file's payload.
type PLYType int

const (
	// PLYAscii is the ascii payload format.
	PLYAscii PLYType = 0
	// PLYBinaryLittleEndian is the binary_little_endian payload format.
	PLYBinaryLittleEndian PLYType = 1
)

// NewFromFile returns a pointcloud read in from the given file.
func NewFromFile(fn string, logger golog.Logger) (*Cloud, error) {
	switch filepath.Ext(fn) {
	case ".ply":
		return NewFromPLYFile(fn, logger)
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
}

// NewFromPLYFile returns a point cloud from reading a PLY file's vertex
// element. Position properties are required; an opacity property is kept when
// present and all other per-vertex properties are skipped.
func NewFromPLYFile(fn string, logger golog.Logger) (*Cloud, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return ReadPLY(f, logger)
}

type plyProperty struct {
	name string
	typ  string
}

type plyHeader struct {
	format      PLYType
	vertexCount int
	properties  []plyProperty
}

var plyTypeSizes = map[string]int{
	"char": 1, "int8": 1, "uchar": 1, "uint8": 1,
	"short": 2, "int16": 2, "ushort": 2, "uint16": 2,
	"int": 4, "int32": 4, "uint": 4, "uint32": 4,
	"float": 4, "float32": 4,
	"double": 8, "float64": 8,
}

func parsePLYHeader(in *bufio.Reader) (plyHeader, error) {
	header := plyHeader{vertexCount: -1}

	magic, err := in.ReadString('\n')
	if err != nil {
		return header, errors.Wrap(err, "error reading ply magic")
	}
	if strings.TrimSpace(magic) != "ply" {
		return header, errors.New("not a ply file")
	}

	// Properties are only collected for the vertex element; any element
	// declared before vertex makes the payload offsets unknowable.
	inVertex := false
	sawVertex := false
	for {
		line, err := in.ReadString('\n')
		if err != nil {
			return header, errors.Wrap(err, "unterminated ply header")
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "comment") || strings.HasPrefix(line, "obj_info") {
			continue
		}
		if line == "end_header" {
			break
		}

		tokens := strings.Fields(line)
		switch tokens[0] {
		case "format":
			if len(tokens) != 3 {
				return header, errors.Errorf("malformed format line %q", line)
			}
			switch tokens[1] {
			case "ascii":
				header.format = PLYAscii
			case "binary_little_endian":
				header.format = PLYBinaryLittleEndian
			default:
				return header, errors.Errorf("unsupported ply format %q", tokens[1])
			}
		case "element":
			if len(tokens) != 3 {
				return header, errors.Errorf("malformed element line %q", line)
			}
			if tokens[1] == "vertex" {
				n, err := strconv.Atoi(tokens[2])
				if err != nil {
					return header, errors.Errorf("invalid vertex count %q", tokens[2])
				}
				header.vertexCount = n
				inVertex = true
				sawVertex = true
			} else {
				if !sawVertex {
					return header, errors.Errorf("element %q precedes vertex element", tokens[1])
				}
				inVertex = false
			}
		case "property":
			if !inVertex {
				continue
			}
			if tokens[1] == "list" {
				return header, errors.New("list properties on vertex elements are not supported")
			}
			if len(tokens) != 3 {
				return header, errors.Errorf("malformed property line %q", line)
			}
			if _, ok := plyTypeSizes[tokens[1]]; !ok {
				return header, errors.Errorf("unsupported property type %q", tokens[1])
			}
			header.properties = append(header.properties, plyProperty{name: tokens[2], typ: tokens[1]})
		}
	}

	if header.vertexCount < 0 {
		return header, errors.New("ply header has no vertex element")
	}
	for _, name := range []string{"x", "y", "z"} {
		if propertyIndex(header.properties, name) < 0 {
			return header, errors.Errorf("vertex element missing %q property", name)
		}
	}
	return header, nil
}

func propertyIndex(props []plyProperty, name string) int {
	for i, p := range props {
		if p.name == name {
			return i
		}
	}
	return -1
}

// ReadPLY parses the vertex records of a PLY stream into a Cloud.
func ReadPLY(inRaw io.Reader, logger golog.Logger) (*Cloud, error) {
	in := bufio.NewReader(inRaw)
	header, err := parsePLYHeader(in)
	if err != nil {
		return nil, err
	}

	xi := propertyIndex(header.properties, "x")
	yi := propertyIndex(header.properties, "y")
	zi := propertyIndex(header.properties, "z")
	oi := propertyIndex(header.properties, "opacity")

	cloud := NewWithPrealloc(header.vertexCount)
	for i := 0; i < header.vertexCount; i++ {
		var record []float64
		switch header.format {
		case PLYAscii:
			record, err = readPLYAsciiRecord(in, header)
		case PLYBinaryLittleEndian:
			record, err = readPLYBinaryRecord(in, header)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "error reading vertex %d", i)
		}

		pos := r3.Vector{X: record[xi], Y: record[yi], Z: record[zi]}
		if oi >= 0 {
			err = cloud.AppendWithOpacity(pos, record[oi])
		} else {
			err = cloud.Append(pos)
		}
		if err != nil {
			return nil, err
		}
	}

	logger.Debugf("read %d vertices from ply (opacity: %t)", cloud.Size(), cloud.HasOpacity())
	return cloud, nil
}

func readPLYAsciiRecord(in *bufio.Reader, header plyHeader) ([]float64, error) {
	line, err := in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
		return nil, err
	}
	tokens := strings.Fields(line)
	if len(tokens) != len(header.properties) {
		return nil, errors.Errorf("expected %d fields, got %d", len(header.properties), len(tokens))
	}
	record := make([]float64, len(tokens))
	for j, token := range tokens {
		record[j], err = strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, errors.Errorf("invalid field %q", token)
		}
	}
	return record, nil
}

func readPLYBinaryRecord(in *bufio.Reader, header plyHeader) ([]float64, error) {
	record := make([]float64, len(header.properties))
	for j, prop := range header.properties {
		buf := make([]byte, plyTypeSizes[prop.typ])
		if _, err := io.ReadFull(in, buf); err != nil {
			return nil, err
		}
		switch prop.typ {
		case "char", "int8":
			record[j] = float64(int8(buf[0]))
		case "uchar", "uint8":
			record[j] = float64(buf[0])
		case "short", "int16":
			record[j] = float64(int16(binary.LittleEndian.Uint16(buf)))
		case "ushort", "uint16":
			record[j] = float64(binary.LittleEndian.Uint16(buf))
		case "int", "int32":
			record[j] = float64(int32(binary.LittleEndian.Uint32(buf)))
		case "uint", "uint32":
			record[j] = float64(binary.LittleEndian.Uint32(buf))
		case "float", "float32":
			record[j] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
		case "double", "float64":
			record[j] = math.Float64frombits(binary.LittleEndian.Uint64(buf))
		}
	}
	return record, nil
}
