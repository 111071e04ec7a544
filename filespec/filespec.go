// Package filespec resolves human readable file size specifications, such as
// "10MB=2", into a mapping of byte count to file count.
package filespec

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// ErrInvalidSizeSpec is returned for any malformed size token or count.
var ErrInvalidSizeSpec = errors.New("invalid file size spec")

var sizePattern = regexp.MustCompile(`^(\d+)([A-Za-z]+)$`)

var units = map[string]int64{
	"B":  1,
	"KB": 1024,
	"MB": 1024 * 1024,
	"GB": 1024 * 1024 * 1024,
}

// Spec maps a file size in bytes to the number of files of that size.
type Spec map[int64]int

// Resolve converts size tokens (e.g. "10MB") paired with file counts into a Spec.
// Tokens that normalize to the same byte count have their counts summed.
func Resolve(files map[string]int) (Spec, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: at least one file size is required", ErrInvalidSizeSpec)
	}

	spec := make(Spec, len(files))
	for token, count := range files {
		size, err := ParseSize(token)
		if err != nil {
			return nil, err
		}
		if count < 1 {
			return nil, fmt.Errorf("%w: file count for %q must be 1 or more, got %d", ErrInvalidSizeSpec, token, count)
		}
		if spec[size] > math.MaxInt-count {
			return nil, fmt.Errorf("%w: file count for %q overflows", ErrInvalidSizeSpec, token)
		}
		spec[size] += count
	}
	return spec, nil
}

// ParseSize converts a single size token into a byte count.
func ParseSize(token string) (int64, error) {
	m := sizePattern.FindStringSubmatch(token)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSizeSpec, token)
	}

	multiplier, ok := units[strings.ToUpper(m[2])]
	if !ok {
		return 0, fmt.Errorf("%w: %q has unknown unit %q", ErrInvalidSizeSpec, token, m[2])
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidSizeSpec, token, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %q must be greater than zero", ErrInvalidSizeSpec, token)
	}
	if n > math.MaxInt64/multiplier {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidSizeSpec, token)
	}
	return n * multiplier, nil
}

// ParsePairs parses "size=count" pairs as given on the command line.
func ParsePairs(pairs []string) (map[string]int, error) {
	files := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		for _, p := range strings.Split(pair, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			size, count, ok := strings.Cut(p, "=")
			if !ok {
				return nil, fmt.Errorf("%w: %q is not in size=count form", ErrInvalidSizeSpec, p)
			}
			n, err := strconv.Atoi(strings.TrimSpace(count))
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSizeSpec, p, err)
			}
			files[strings.TrimSpace(size)] += n
		}
	}
	return files, nil
}

// Sizes returns the distinct file sizes in ascending order.
func (s Spec) Sizes() []int64 {
	sizes := make([]int64, 0, len(s))
	for size := range s {
		sizes = append(sizes, size)
	}
	slices.Sort(sizes)
	return sizes
}

// Files returns the total number of files described by the spec.
func (s Spec) Files() int {
	var n int
	for _, count := range s {
		n += count
	}
	return n
}

// Bytes returns the total number of bytes described by the spec.
func (s Spec) Bytes() int64 {
	var n int64
	for size, count := range s {
		n += size * int64(count)
	}
	return n
}

func (s Spec) String() string {
	parts := make([]string, 0, len(s))
	for _, size := range s.Sizes() {
		parts = append(parts, fmt.Sprintf("%dx%s", s[size], humanize.IBytes(uint64(size))))
	}
	return strings.Join(parts, ", ")
}
