package submission

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrFileTooLarge indicates a file above the configured size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrFileTypeNotAllowed indicates an extension outside the assignment allow-list.
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
)

// FileRules constrains which files may be attached. A MaxSize of zero disables
// the size check; an empty AllowedTypes list accepts every extension.
type FileRules struct {
	MaxSize      int64
	AllowedTypes []string
}

// Extension returns the lower-case extension of name without the leading dot.
func Extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(strings.TrimSpace(name))), ".")
}

// Validate checks a single file against the rules.
func (r FileRules) Validate(name string, size int64) error {
	if r.MaxSize > 0 && size > r.MaxSize {
		return fmt.Errorf("%s: %w", name, ErrFileTooLarge)
	}

	if len(r.AllowedTypes) == 0 {
		return nil
	}

	ext := Extension(name)
	for _, allowed := range r.AllowedTypes {
		if strings.TrimPrefix(strings.ToLower(strings.TrimSpace(allowed)), ".") == ext && ext != "" {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", name, ErrFileTypeNotAllowed)
}

// ValidateFile checks one file against a size limit and an extension allow-list.
func ValidateFile(name string, size, maxSize int64, allowedTypes []string) error {
	return FileRules{MaxSize: maxSize, AllowedTypes: allowedTypes}.Validate(name, size)
}

// Rejection records why a file was left out of a selection.
type Rejection struct {
	Name string
	Err  error
}

// FilterFiles keeps the files that pass the rules and reports every rejection.
// Valid files are kept even when others in the same batch fail.
func FilterFiles[T any](files []T, describe func(T) (string, int64), rules FileRules) ([]T, []Rejection) {
	accepted := make([]T, 0, len(files))
	var rejected []Rejection
	for _, file := range files {
		name, size := describe(file)
		if err := rules.Validate(name, size); err != nil {
			rejected = append(rejected, Rejection{Name: name, Err: err})
			continue
		}
		accepted = append(accepted, file)
	}
	return accepted, rejected
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count with 1024-based units and at most two decimals.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	unit := 0
	for scaled := bytes; scaled >= 1024 && unit < len(sizeUnits)-1; scaled /= 1024 {
		unit++
	}

	value := float64(bytes) / math.Pow(1024, float64(unit))
	value = math.Round(value*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + sizeUnits[unit]
}
