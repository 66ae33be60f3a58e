package train

import (
	"path/filepath"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

func TestToolkitPathEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ToolkitEnvVar, dir)

	got, err := ToolkitPath()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldEqual, dir)

	t.Setenv(ToolkitEnvVar, filepath.Join(dir, "does-not-exist"))
	_, err = ToolkitPath()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not found")
}

func TestCommandArgs(t *testing.T) {
	tr := NewTrainer("/data/scene", "/data/scene/output", golog.NewTestLogger(t))
	args := tr.commandArgs(Options{})
	test.That(t, args[0], test.ShouldEqual, "train.py")
	test.That(t, args, test.ShouldContain, "-s")
	test.That(t, args, test.ShouldContain, "/data/scene")
	test.That(t, args, test.ShouldContain, "--iterations")
	test.That(t, args, test.ShouldContain, "30000")
	test.That(t, args, test.ShouldContain, "0.00016")
	test.That(t, args, test.ShouldNotContain, "--test_iterations")
	test.That(t, args, test.ShouldNotContain, "--densify_grad_threshold")
}

func TestCommandArgsIterationLists(t *testing.T) {
	tr := NewTrainer("/s", "/m", golog.NewTestLogger(t))
	args := tr.commandArgs(Options{
		TestIterations:       []int{7000, 15000, 30000},
		CheckpointIterations: []int{7000},
	})
	test.That(t, args, test.ShouldContain, "--test_iterations")
	test.That(t, args, test.ShouldContain, "15000")
	test.That(t, args, test.ShouldContain, "--checkpoint_iterations")
}

func TestCommandArgsLightweight(t *testing.T) {
	tr := NewTrainer("/s", "/m", golog.NewTestLogger(t))
	tr.Lightweight = true
	args := tr.commandArgs(Options{})
	test.That(t, args, test.ShouldContain, "--densify_grad_threshold")
	test.That(t, args, test.ShouldContain, "0.0003")
	test.That(t, args, test.ShouldContain, "--opacity_reset_interval")
}

func TestCommandArgsResume(t *testing.T) {
	tr := NewTrainer("/s", "/m", golog.NewTestLogger(t))
	args := tr.commandArgs(Options{ResumeCheckpoint: "/m/chkpnt7000.pth"})
	test.That(t, args, test.ShouldContain, "--start_checkpoint")
	test.That(t, args, test.ShouldContain, "/m/chkpnt7000.pth")
}

func TestModelPLYPath(t *testing.T) {
	got := ModelPLYPath("/models/scene", 30000)
	test.That(t, got, test.ShouldEqual,
		filepath.Join("/models/scene", "point_cloud", "iteration_30000", "point_cloud.ply"))
}
