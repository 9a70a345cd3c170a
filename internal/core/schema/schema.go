// Package schema defines the closed set of supported SANA model versions
// and, for each, the option schema the intake validator applies and the
// aligner binary the processing engine invokes.
package schema

// Version selects both the option schema applied at intake and the
// external aligner binary invoked during processing.
type Version string

const (
	SANA1   Version = "SANA1"
	SANA1_1 Version = "SANA1_1"
	SANA2   Version = "SANA2"
)

// Versions lists every supported model version.
func Versions() []Version {
	return []Version{SANA1, SANA1_1, SANA2}
}

// Parse maps a submitted tag to a Version.
func Parse(s string) (Version, bool) {
	switch Version(s) {
	case SANA1:
		return SANA1, true
	case SANA1_1:
		return SANA1_1, true
	case SANA2:
		return SANA2, true
	}
	return "", false
}

// Binary returns the aligner executable name for the version, relative
// to the configured bin directory.
func (v Version) Binary() string {
	switch v {
	case SANA1:
		return "sana1"
	case SANA1_1:
		return "sana1.1"
	case SANA2:
		return "sana2"
	}
	return ""
}

// Option is one entry of a version's standard option schema. Checkbox
// options default to 0 ("off") when omitted; the rest default to their
// declared default value.
type Option struct {
	Key      string
	Default  float64
	Checkbox bool
}

// Standard returns the version's standard option schema. The runtime
// limit `t` is common to every version and carries its own range rule at
// intake.
func (v Version) Standard() []Option {
	switch v {
	case SANA1:
		return []Option{
			{Key: "t", Default: 3},
			{Key: "s3", Default: 1},
			{Key: "ec", Default: 0},
		}
	case SANA1_1:
		return []Option{
			{Key: "t", Default: 3},
			{Key: "s3", Default: 1},
			{Key: "ec", Default: 0},
			{Key: "ics", Checkbox: true},
			{Key: "tolerance", Default: 0.1},
		}
	case SANA2:
		return []Option{
			{Key: "t", Default: 3},
			{Key: "s3", Default: 1},
			{Key: "ec", Default: 0},
		}
	}
	return nil
}

// SupportsEsim reports whether the version accepts the advanced external
// similarity weight list.
func (v Version) SupportsEsim() bool {
	return v == SANA2
}

// Formats is the closed set of accepted network file extensions.
var Formats = []string{"el", "gw"}

// ValidFormat reports whether ext (without the dot) is an accepted
// network file format.
func ValidFormat(ext string) bool {
	for _, f := range Formats {
		if ext == f {
			return true
		}
	}
	return false
}
