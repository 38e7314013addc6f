// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package placeholder defines the textual stand-in for an image. The same
// filename appears inside the token and as the materialized file's name, so
// both are produced here and nowhere else.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	tokenPrefix = "[image: "
	tokenSuffix = "]"
)

// extClass is the character class of an image extension, shared by the
// token pattern and ValidExt.
const extClass = `[A-Za-z0-9]+`

var (
	// pattern matches a complete placeholder token and captures its filename.
	pattern = regexp.MustCompile(`\[image: (p\d+-b\d+\.` + extClass + `)\]`)

	extPattern = regexp.MustCompile(`^` + extClass + `$`)
)

// ValidExt reports whether ext can be used in a placeholder and as a file
// extension: one or more ASCII letters or digits.
func ValidExt(ext string) bool {
	return extPattern.MatchString(ext)
}

// Stem returns the file stem for the image at block on page: p<page>-b<block>.
func Stem(page, block int) string {
	return fmt.Sprintf("p%d-b%d", page, block)
}

// Filename returns the materialized file name: p<page>-b<block>.<ext>.
func Filename(page, block int, ext string) string {
	return Stem(page, block) + "." + ext
}

// Token wraps a filename in the in-text marker: [image: <filename>].
func Token(filename string) string {
	return tokenPrefix + filename + tokenSuffix
}

// Parse extracts the filename from a token. It reports false when s is not
// exactly one placeholder token.
func Parse(s string) (string, bool) {
	if !strings.HasPrefix(s, tokenPrefix) || !strings.HasSuffix(s, tokenSuffix) {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(s, tokenPrefix), tokenSuffix)
	if name == "" || pattern.FindString(s) != s {
		return "", false
	}
	return name, true
}

// FindAll returns the filenames of every placeholder in text, in order of
// appearance. Repeated placeholders are returned once per occurrence.
func FindAll(text string) []string {
	matches := pattern.FindAllStringSubmatch(text, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Count returns the number of placeholder tokens in text.
func Count(text string) int {
	return len(pattern.FindAllStringIndex(text, -1))
}
