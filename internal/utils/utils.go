package utils

import (
	"mime"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// maskedPrefixLength is the number of leading characters MaskSecret keeps visible.
const maskedPrefixLength = 4

var (
	// textContentTypePatterns match the readable bodies a login or API endpoint answers with:
	// HTML pages, JSON documents (including "+json" suffixes), form-encoded token responses and scripts.
	//nolint:gochecknoglobals // These are immutable, pre-compiled regex patterns and used as constants.
	textContentTypePatterns = []*regexp.Regexp{
		regexp.MustCompile("^text/.+"),
		regexp.MustCompile(`^application/([a-z0-9.-]+\+)?json$`),
		regexp.MustCompile("^application/x-www-form-urlencoded$"),
		regexp.MustCompile("^application/(x-)?javascript$"),
	}
)

// IsFileExist checks if a file exists at the specified path.
// It returns true if the file exists and is not a directory, false if the file does not exist,
// and an error if there was an issue accessing the file.
func IsFileExist(path string) (bool, error) {
	stat, err := os.Stat(path)
	if err == nil {
		return !stat.IsDir(), nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, err
}

// IsTextContentType reports whether a response body of contentType is safe to dump as text.
// The charset, if present, must be "utf-8" or "us-ascii".
func IsTextContentType(contentType string) bool {
	parsedType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	for _, pattern := range textContentTypePatterns {
		if !pattern.MatchString(parsedType) {
			continue
		}

		charset := strings.ToLower(params["charset"])

		return charset == "" || charset == "utf-8" || charset == "us-ascii"
	}

	return false
}

// MaskSecret hides everything but the first few characters of a secret value.
// The result keeps the original length visible so values can still be told apart in logs.
func MaskSecret(value string) string {
	if len(value) <= maskedPrefixLength {
		return strings.Repeat("*", len(value))
	}

	return value[:maskedPrefixLength] + "…(" + strconv.Itoa(len(value)) + " chars)"
}

// Map applies a transformation function to each element of a slice and returns a new slice with the results.
func Map[E, S any](v []E, transformFunc func(E) S) []S {
	result := make([]S, len(v))
	for i := range v {
		result[i] = transformFunc(v[i])
	}

	return result
}
