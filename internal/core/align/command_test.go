package align

import (
	"testing"

	"github.com/maitreyyi/SANA-Development-sub001/internal/core/job"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/schema"
	"github.com/stretchr/testify/assert"
)

func testJob(version schema.Version, format string, std map[string]float64, esim []float64) *job.Job {
	return &job.Job{
		ID:           "j1",
		ModelVersion: version,
		Inputs: []job.Input{
			{Name: "network1", Original: "a." + format, Format: format},
			{Name: "network2", Original: "b." + format, Format: format},
		},
		Options: job.Options{Standard: std, Esim: esim},
	}
}

func TestBuildCommandEdgeListInputs(t *testing.T) {
	j := testJob(schema.SANA1, "el", map[string]float64{"t": 5, "s3": 1, "ec": 0}, nil)

	args := BuildCommand("/opt/sana/bin/sana1", j)
	assert.Equal(t, []string{
		"/opt/sana/bin/sana1",
		"-fg1", "inputs/network1/network1.el",
		"-fg2", "inputs/network2/network2.el",
		"-tinitial", "auto", "-tdecay", "auto",
		"-ec", "0", "-s3", "1", "-t", "5",
	}, args)
}

func TestBuildCommandGraphFileInputs(t *testing.T) {
	j := testJob(schema.SANA1, "gw", map[string]float64{"t": 3, "s3": 1, "ec": 0}, nil)

	args := BuildCommand("/opt/sana/bin/sana1", j)
	assert.Equal(t, "-g1", args[1])
	assert.Equal(t, "inputs/network1/network1.gw", args[2])
	assert.Equal(t, "-g2", args[3])
	assert.Equal(t, "inputs/network2/network2.gw", args[4])
}

func TestBuildCommandDeterministic(t *testing.T) {
	j := testJob(schema.SANA1_1, "el", map[string]float64{"t": 3, "s3": 1, "ec": 0, "ics": 1, "tolerance": 0.1}, nil)

	first := BuildCommand("sana1.1", j)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildCommand("sana1.1", j))
	}
}

func TestBuildCommandFractionalValues(t *testing.T) {
	j := testJob(schema.SANA1_1, "el", map[string]float64{"t": 3, "s3": 1, "ec": 0, "ics": 0, "tolerance": 0.1}, nil)

	args := BuildCommand("sana1.1", j)
	assert.Contains(t, args, "-tolerance")
	for i, a := range args {
		if a == "-tolerance" {
			assert.Equal(t, "0.1", args[i+1])
		}
	}
}

func TestBuildCommandEsimBlock(t *testing.T) {
	j := testJob(schema.SANA2, "el", map[string]float64{"t": 3, "s3": 1, "ec": 0}, []float64{0.5, 2})

	args := BuildCommand("sana2", j)
	assert.Equal(t, []string{
		"sana2",
		"-fg1", "inputs/network1/network1.el",
		"-fg2", "inputs/network2/network2.el",
		"-tinitial", "auto", "-tdecay", "auto",
		"-ec", "0", "-s3", "1", "-t", "3",
		"-esim", "2", "0.5", "2",
		"-simFile", "2", "esim/0.esim", "esim/1.esim",
		"-simFormat", "2", "1", "1",
	}, args)
}

func TestBuildCommandEsimIgnoredWithoutSupport(t *testing.T) {
	j := testJob(schema.SANA1, "el", map[string]float64{"t": 3, "s3": 1, "ec": 0}, []float64{1})

	args := BuildCommand("sana1", j)
	assert.NotContains(t, args, "-esim")
}
