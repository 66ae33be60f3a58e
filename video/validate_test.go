package video

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func writeTestImage(t *testing.T, fn string, noisy bool) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(128)
			if noisy && (x+y)%2 == 0 {
				v = 0
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	f, err := os.Create(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, png.Encode(f, img), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)
}

func TestValidateImagesEmptyDir(t *testing.T) {
	report, err := ValidateImages(t.TempDir())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Valid, test.ShouldBeFalse)
	test.That(t, report.NumImages, test.ShouldEqual, 0)
	test.That(t, report.Issues[0], test.ShouldContainSubstring, "too few images")
}

func TestValidateImagesSharp(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 12; i++ {
		writeTestImage(t, filepath.Join(dir, "frame_"+string(rune('a'+i))+".png"), true)
	}
	report, err := ValidateImages(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Valid, test.ShouldBeTrue)
	test.That(t, report.NumImages, test.ShouldEqual, 12)
}

func TestValidateImagesBlurry(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 12; i++ {
		// flat images have zero Laplacian variance
		writeTestImage(t, filepath.Join(dir, "frame_"+string(rune('a'+i))+".png"), false)
	}
	report, err := ValidateImages(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Valid, test.ShouldBeFalse)
	// only the sampled images are flagged
	test.That(t, len(report.Issues), test.ShouldEqual, maxSampledImages)
	test.That(t, report.Issues[0], test.ShouldContainSubstring, "possibly blurry")
}

func TestValidateImagesUnreadable(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 11; i++ {
		writeTestImage(t, filepath.Join(dir, "ok_"+string(rune('a'+i))+".png"), true)
	}
	test.That(t, os.WriteFile(filepath.Join(dir, "aa_bad.jpg"), []byte("not an image"), 0o600), test.ShouldBeNil)

	report, err := ValidateImages(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, report.Valid, test.ShouldBeFalse)
	test.That(t, report.NumImages, test.ShouldEqual, 12)
	test.That(t, report.Issues[0], test.ShouldContainSubstring, "cannot read")
}

func TestParseFrameRate(t *testing.T) {
	fps, err := parseFrameRate("30000/1001")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fps, test.ShouldAlmostEqual, 29.97, 0.01)

	fps, err = parseFrameRate("25/1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fps, test.ShouldEqual, 25)

	fps, err = parseFrameRate("24")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fps, test.ShouldEqual, 24)

	_, err = parseFrameRate("30/0")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = parseFrameRate("abc/def")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestJPEGQScale(t *testing.T) {
	test.That(t, jpegQScale(100), test.ShouldEqual, 2)
	test.That(t, jpegQScale(1), test.ShouldEqual, 31)
	test.That(t, jpegQScale(95), test.ShouldBeLessThan, jpegQScale(50))
	test.That(t, jpegQScale(500), test.ShouldEqual, 2)
	test.That(t, jpegQScale(-5), test.ShouldEqual, 31)
}
