package pointcloud

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestBoundingBox(t *testing.T) {
	cloud := New()
	_, _, err := BoundingBox(cloud)
	test.That(t, err, test.ShouldBeError, ErrEmptyScene)

	test.That(t, cloud.Append(r3.Vector{X: 1, Y: -2, Z: 3}), test.ShouldBeNil)
	test.That(t, cloud.Append(r3.Vector{X: -4, Y: 5, Z: 0}), test.ShouldBeNil)
	test.That(t, cloud.Append(r3.Vector{X: 2, Y: 2, Z: -6}), test.ShouldBeNil)

	boxMin, boxMax, err := BoundingBox(cloud)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, boxMin, test.ShouldResemble, r3.Vector{X: -4, Y: -2, Z: -6})
	test.That(t, boxMax, test.ShouldResemble, r3.Vector{X: 2, Y: 5, Z: 3})
}

func TestAttributeDistribution(t *testing.T) {
	dist := AttributeDistribution(nil, 0.1, 0.9)
	test.That(t, dist, test.ShouldResemble, Distribution{})

	values := []float64{0.05, 0.5, 0.5, 0.95}
	dist = AttributeDistribution(values, 0.1, 0.9)
	test.That(t, dist.Mean, test.ShouldAlmostEqual, 0.5)
	test.That(t, dist.NumBelow, test.ShouldEqual, 1)
	test.That(t, dist.NumAbove, test.ShouldEqual, 1)

	// population std of {2, 4}: mean 3, std 1
	dist = AttributeDistribution([]float64{2, 4}, 0, 10)
	test.That(t, dist.Mean, test.ShouldAlmostEqual, 3)
	test.That(t, dist.Std, test.ShouldAlmostEqual, 1)
	test.That(t, dist.NumBelow, test.ShouldEqual, 0)
	test.That(t, dist.NumAbove, test.ShouldEqual, 0)
}

func TestAttributeDistributionThresholdsExclusive(t *testing.T) {
	// values exactly at the thresholds are not counted
	values := []float64{0.1, 0.9}
	dist := AttributeDistribution(values, 0.1, 0.9)
	test.That(t, dist.NumBelow, test.ShouldEqual, 0)
	test.That(t, dist.NumAbove, test.ShouldEqual, 0)
}
