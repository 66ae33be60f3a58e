package colmap

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

func testProcessor(t *testing.T) *Processor {
	t.Helper()
	return &Processor{
		ImagesDir:    "/data/images",
		OutputDir:    "/data/out",
		Quality:      QualityHigh,
		UseGPU:       true,
		SingleCamera: true,
		logger:       golog.NewTestLogger(t),
	}
}

func TestFeatureExtractionArgs(t *testing.T) {
	p := testProcessor(t)
	args := p.featureExtractionArgs()
	test.That(t, args[0], test.ShouldEqual, "feature_extractor")
	test.That(t, args, test.ShouldContain, "--SiftExtraction.max_image_size")
	test.That(t, args, test.ShouldContain, "3200")
	test.That(t, args, test.ShouldContain, "16384")
	test.That(t, args, test.ShouldContain, "OPENCV")

	p.UseGPU = false
	args = p.featureExtractionArgs()
	gpuIdx := indexOf(args, "--SiftExtraction.use_gpu")
	test.That(t, gpuIdx, test.ShouldBeGreaterThan, -1)
	test.That(t, args[gpuIdx+1], test.ShouldEqual, "0")
}

func TestFeatureExtractionLightweightDowngrade(t *testing.T) {
	p := testProcessor(t)
	p.Lightweight = true
	args := p.featureExtractionArgs()
	// high downgrades to medium
	test.That(t, args, test.ShouldContain, "2400")
	test.That(t, args, test.ShouldContain, "8192")

	p.Quality = QualityLow
	args = p.featureExtractionArgs()
	test.That(t, args, test.ShouldContain, "1600")
}

func TestFeatureMatchingArgs(t *testing.T) {
	p := testProcessor(t)
	args := p.featureMatchingArgs()
	test.That(t, args[0], test.ShouldEqual, "exhaustive_matcher")

	p.Lightweight = true
	args = p.featureMatchingArgs()
	test.That(t, args[0], test.ShouldEqual, "sequential_matcher")
	test.That(t, args, test.ShouldContain, "--SequentialMatching.overlap")
}

func TestMapperArgs(t *testing.T) {
	p := testProcessor(t)
	args := p.mapperArgs()
	test.That(t, args[0], test.ShouldEqual, "mapper")
	test.That(t, args, test.ShouldNotContain, "--Mapper.ba_global_max_num_iterations")

	p.Lightweight = true
	args = p.mapperArgs()
	test.That(t, args, test.ShouldContain, "--Mapper.ba_global_max_num_iterations")
	test.That(t, args, test.ShouldContain, "50")
}

func indexOf(args []string, want string) int {
	for i, a := range args {
		if a == want {
			return i
		}
	}
	return -1
}
