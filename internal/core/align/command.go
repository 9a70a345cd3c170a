package align

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/maitreyyi/SANA-Development-sub001/internal/core/job"
)

// BuildCommand constructs the exact aligner argument list for a job.
// The list is deterministic: the same descriptor always produces the
// same command. It is executed directly, never through a shell, so
// option values and filenames cannot inject anything.
//
// Layout:
//   - binary path
//   - input pair: .gw files are passed as direct graph-file paths via
//     -g1/-g2; .el files via the explicit -fg1/-fg2 file flags
//   - fixed auto-tuning flags
//   - every standard option as a -key value pair, key-sorted
//   - for versions that support it, the external similarity block
//     derived from the advanced esim weight list
func BuildCommand(binary string, j *job.Job) []string {
	args := []string{binary}

	p1 := j.Inputs[0].RelPath()
	p2 := j.Inputs[1].RelPath()
	if j.Inputs[0].Format == "gw" {
		args = append(args, "-g1", p1, "-g2", p2)
	} else {
		args = append(args, "-fg1", p1, "-fg2", p2)
	}

	args = append(args, "-tinitial", "auto", "-tdecay", "auto")

	keys := make([]string, 0, len(j.Options.Standard))
	for k := range j.Options.Standard {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-"+k, formatValue(j.Options.Standard[k]))
	}

	if j.ModelVersion.SupportsEsim() && len(j.Options.Esim) > 0 {
		args = append(args, esimBlock(j.Options.Esim)...)
	}

	return args
}

// esimBlock emits the external-similarity flags: the weight count and
// weights, a matching file count with one generated relative path per
// index, and the format tag repeated once per index.
func esimBlock(weights []float64) []string {
	n := strconv.Itoa(len(weights))

	args := []string{"-esim", n}
	for _, w := range weights {
		args = append(args, formatValue(w))
	}

	args = append(args, "-simFile", n)
	for i := range weights {
		args = append(args, fmt.Sprintf("esim/%d.esim", i))
	}

	args = append(args, "-simFormat", n)
	for range weights {
		args = append(args, "1")
	}

	return args
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
