package job

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/schema"
)

// Upload is one submitted network file.
type Upload struct {
	Filename string
	Reader   io.Reader
}

// Submission carries everything intake needs to admit a job.
type Submission struct {
	Owner        string
	ModelVersion string
	RawOptions   map[string]any
	Files        []Upload
}

// Runtime limit bounds for the well-known `t` option, in minutes.
const (
	minRuntime = 1
	maxRuntime = 60
)

var logicalNames = []string{"network1", "network2"}

// Intake validates a submission, materializes the job's working
// directory with the uploaded files renamed under their logical names,
// and atomically writes the initial descriptor with status preprocessed.
//
// Each rejectable condition produces a *ValidationError with a literal
// reason, checked in a fixed order: model version, file count, filename
// whitespace, extension membership, extension match, option schema.
func (s *Store) Intake(sub Submission) (*Job, error) {
	version, ok := schema.Parse(sub.ModelVersion)
	if !ok {
		return nil, validationf("Unsupported model version %q.", sub.ModelVersion)
	}

	if len(sub.Files) != 2 {
		return nil, validationf("Exactly two network files are required.")
	}

	for _, f := range sub.Files {
		if strings.IndexFunc(f.Filename, unicode.IsSpace) >= 0 {
			return nil, validationf("File names must not contain whitespace.")
		}
	}

	exts := make([]string, 2)
	for i, f := range sub.Files {
		ext := strings.TrimPrefix(filepath.Ext(f.Filename), ".")
		if !schema.ValidFormat(ext) {
			return nil, validationf("Unsupported file extension %q; accepted formats are .el and .gw.", ext)
		}
		exts[i] = ext
	}
	if exts[0] != exts[1] {
		return nil, validationf("Both network files must share the same extension.")
	}

	opts, err := validateOptions(version, sub.RawOptions)
	if err != nil {
		return nil, err
	}

	j := &Job{
		ID:           uuid.NewString(),
		Owner:        sub.Owner,
		Status:       StatusPreprocessed,
		ModelVersion: version,
		Options:      *opts,
		CreatedAt:    time.Now().UTC(),
	}

	for i, f := range sub.Files {
		j.Inputs = append(j.Inputs, Input{
			Name:     logicalNames[i],
			Original: f.Filename,
			Format:   exts[i],
		})
	}

	if err := s.materialize(j, sub.Files); err != nil {
		return nil, err
	}

	// Descriptor is written last so a filesystem failure above never
	// leaves a record claiming success.
	if err := s.Create(j); err != nil {
		return nil, err
	}
	return j, nil
}

// materialize creates the working directory and the inputs subtree,
// copying each uploaded file to inputs/<name>/<name>.<ext>.
func (s *Store) materialize(j *Job, files []Upload) error {
	dir := s.Dir(j.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ioErrorf("create working directory", err)
	}

	for i, in := range j.Inputs {
		sub := filepath.Join(dir, "inputs", in.Name)
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return ioErrorf("create inputs directory", err)
		}

		dst, err := os.Create(filepath.Join(dir, filepath.FromSlash(in.RelPath())))
		if err != nil {
			return ioErrorf("create input file", err)
		}
		if _, err := io.Copy(dst, files[i].Reader); err != nil {
			dst.Close()
			return ioErrorf("write input file", err)
		}
		if err := dst.Close(); err != nil {
			return ioErrorf("write input file", err)
		}
	}
	return nil
}

// validateOptions parses the free-form payload against the version's
// schema: every schema key is present afterwards (defaulted when
// omitted, checkbox options defaulting to 0), every value is numeric,
// and the runtime limit t is an integer within [1, 60].
func validateOptions(version schema.Version, raw map[string]any) (*Options, error) {
	opts := &Options{Standard: make(map[string]float64)}

	for _, opt := range version.Standard() {
		v, present := raw[opt.Key]
		if !present {
			if opt.Checkbox {
				opts.Standard[opt.Key] = 0
			} else {
				opts.Standard[opt.Key] = opt.Default
			}
			continue
		}
		num, ok := toNumber(v)
		if !ok {
			return nil, validationf("Option %q must be a number.", opt.Key)
		}
		opts.Standard[opt.Key] = num
	}

	t := opts.Standard["t"]
	if t != math.Trunc(t) || t < minRuntime || t > maxRuntime {
		return nil, validationf("Running time must be an integer between %d and %d, inclusive.", minRuntime, maxRuntime)
	}

	if version.SupportsEsim() {
		if v, present := raw["esim"]; present {
			weights, ok := toNumberList(v)
			if !ok {
				return nil, validationf("Option %q must be a list of numbers.", "esim")
			}
			opts.Esim = weights
		}
	}

	return opts, nil
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toNumberList(v any) ([]float64, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	weights := make([]float64, 0, len(items))
	for _, item := range items {
		n, ok := toNumber(item)
		if !ok {
			return nil, false
		}
		weights = append(weights, n)
	}
	return weights, true
}
