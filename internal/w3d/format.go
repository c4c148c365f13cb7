package w3d

import (
	"fmt"
	"strings"
)

// Format selects the flavour of records an export produces.
type Format string

const (
	// FormatW3D writes shader materials for materials flagged as such and
	// vertex materials for the rest.
	FormatW3D Format = "W3D"
	// FormatW3X always writes shader materials.
	FormatW3X Format = "W3X"
	// FormatW3DLegacy always writes vertex materials.
	FormatW3DLegacy Format = "W3D_LEGACY"
)

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToUpper(strings.TrimSpace(s))); f {
	case FormatW3D, FormatW3X, FormatW3DLegacy:
		return f, nil
	case "":
		return FormatW3D, nil
	}
	return "", fmt.Errorf("w3d: unknown format %q", s)
}
