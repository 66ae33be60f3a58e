package pointcloud

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

const asciiPLY = `ply
format ascii 1.0
comment generated for testing
element vertex 3
property float x
property float y
property float z
property float opacity
end_header
0 0 0 1.5
1 2 3 -0.5
-1 -2 -3 0
`

func TestReadPLYAscii(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cloud, err := ReadPLY(strings.NewReader(asciiPLY), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 3)
	test.That(t, cloud.HasOpacity(), test.ShouldBeTrue)
	test.That(t, cloud.At(1), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, cloud.Opacity()[0], test.ShouldAlmostEqual, 1.5)
	test.That(t, cloud.Opacity()[1], test.ShouldAlmostEqual, -0.5)

	meta := cloud.MetaData()
	test.That(t, meta.MinX, test.ShouldEqual, -1)
	test.That(t, meta.MaxZ, test.ShouldEqual, 3)
}

func TestReadPLYAsciiNoOpacity(t *testing.T) {
	in := `ply
format ascii 1.0
element vertex 1
property float x
property float y
property float z
end_header
4 5 6
`
	cloud, err := ReadPLY(strings.NewReader(in), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 1)
	test.That(t, cloud.HasOpacity(), test.ShouldBeFalse)
	test.That(t, cloud.Opacity(), test.ShouldBeNil)
}

func TestReadPLYBinary(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("ply\n")
	buf.WriteString("format binary_little_endian 1.0\n")
	buf.WriteString("element vertex 2\n")
	buf.WriteString("property float x\n")
	buf.WriteString("property float y\n")
	buf.WriteString("property float z\n")
	buf.WriteString("property float nx\n")
	buf.WriteString("property float opacity\n")
	buf.WriteString("end_header\n")
	for _, v := range [][5]float32{
		{1, 2, 3, 9, 0.25},
		{-1, 0, 0.5, 9, -2},
	} {
		for _, f := range v {
			var raw [4]byte
			binary.LittleEndian.PutUint32(raw[:], math.Float32bits(f))
			buf.Write(raw[:])
		}
	}

	cloud, err := ReadPLY(&buf, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 2)
	test.That(t, cloud.HasOpacity(), test.ShouldBeTrue)
	test.That(t, cloud.At(0).X, test.ShouldAlmostEqual, 1)
	test.That(t, cloud.At(1).Z, test.ShouldAlmostEqual, 0.5)
	test.That(t, cloud.Opacity()[0], test.ShouldAlmostEqual, 0.25)
	test.That(t, cloud.Opacity()[1], test.ShouldAlmostEqual, -2)
}

func TestReadPLYErrors(t *testing.T) {
	logger := golog.NewTestLogger(t)

	_, err := ReadPLY(strings.NewReader("not a ply\n"), logger)
	test.That(t, err, test.ShouldNotBeNil)

	noVertex := "ply\nformat ascii 1.0\nend_header\n"
	_, err = ReadPLY(strings.NewReader(noVertex), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "vertex")

	missingZ := "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nend_header\n0 0\n"
	_, err = ReadPLY(strings.NewReader(missingZ), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"z"`)

	truncated := "ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n"
	_, err = ReadPLY(strings.NewReader(truncated), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewFromFileUnknownExtension(t *testing.T) {
	_, err := NewFromFile("model.xyz", golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "do not know how")
}
