package video

import (
	"fmt"
	"image"
	// registered for image.Decode
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/stat"
)

const (
	minRecommendedImages  = 10
	blurVarianceThreshold = 50
	maxSampledImages      = 5
)

// ValidationReport describes whether an image directory looks usable for
// reconstruction. Issues are advisory; the caller decides whether to proceed.
type ValidationReport struct {
	Valid     bool     `json:"valid"`
	Issues    []string `json:"issues"`
	NumImages int      `json:"num_images"`
}

// ValidateImages inspects an extracted image directory: it counts frames and
// decodes a small sample, flagging unreadable or blurry ones.
func ValidateImages(dir string) (ValidationReport, error) {
	var files []string
	for _, pattern := range []string{"*.jpg", "*.png"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return ValidationReport{}, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	report := ValidationReport{NumImages: len(files)}
	if len(files) < minRecommendedImages {
		report.Issues = append(report.Issues,
			fmt.Sprintf("too few images: %d (recommend 50+)", len(files)))
	}

	sample := files
	if len(sample) > maxSampledImages {
		sample = sample[:maxSampledImages]
	}
	for _, fn := range sample {
		img, err := decodeImage(fn)
		if err != nil {
			report.Issues = append(report.Issues,
				fmt.Sprintf("cannot read: %s", filepath.Base(fn)))
			continue
		}
		if blurScore(img) < blurVarianceThreshold {
			report.Issues = append(report.Issues,
				fmt.Sprintf("possibly blurry: %s", filepath.Base(fn)))
		}
	}

	report.Valid = len(report.Issues) == 0
	return report, nil
}

func decodeImage(fn string) (image.Image, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode %q", fn)
	}
	return img, nil
}

// blurScore is the variance of the Laplacian over the grayscale image; sharp
// images have strong second derivatives, blurry ones do not.
func blurScore(img image.Image) float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// 0-255 luma
			gray[y*w+x] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257
		}
	}

	responses := make([]float64, 0, (w-2)*(h-2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := gray[(y-1)*w+x] + gray[(y+1)*w+x] + gray[y*w+x-1] + gray[y*w+x+1] - 4*gray[y*w+x]
			responses = append(responses, lap)
		}
	}
	return stat.PopVariance(responses, nil)
}
