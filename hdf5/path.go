package hdf5

import (
	"fmt"
	"strings"
)

// ParseAttrPath splits "/object/path@attr" into the object path and the
// attribute name. A bare "@attr" or "/@attr" names a root attribute.
func ParseAttrPath(p string) (objectPath, attrName string, err error) {
	at := strings.LastIndex(p, "@")
	if at == -1 {
		return "", "", fmt.Errorf("%w: %q has no '@' separator", ErrInvalidPath, p)
	}
	objectPath, attrName = CleanPath(p[:at]), p[at+1:]
	if attrName == "" {
		return "", "", fmt.Errorf("%w: %q has an empty attribute name", ErrInvalidPath, p)
	}
	return objectPath, attrName, nil
}

// JoinAttrPath is the inverse of ParseAttrPath.
func JoinAttrPath(objectPath, attrName string) string {
	if objectPath == "/" {
		return "/@" + attrName
	}
	return objectPath + "@" + attrName
}

// SplitPath splits a path into its non-empty components.
func SplitPath(p string) []string {
	var out []string
	for _, c := range strings.Split(p, "/") {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// CleanPath returns p with a leading slash, no trailing slash and no empty
// components.
func CleanPath(p string) string {
	return "/" + strings.Join(SplitPath(p), "/")
}
