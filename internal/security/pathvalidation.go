// Package security guards the export path surface: artifact file
// names are derived from user-supplied region names, so every write
// target is sanitized and then checked against the export directory.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory rejects filePath unless it resolves to
// a location inside safeDir. Symlinks are resolved on both sides so a
// link planted inside the export directory cannot redirect a write
// elsewhere.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}

	canonical := canonicalize(absPath)

	canonicalSafeDir, err := filepath.EvalSymlinks(absSafeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(canonicalSafeDir, canonical)
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// canonicalize resolves symlinks in absPath. Artifact files usually do
// not exist yet when validated, so when the full path cannot be
// resolved the nearest existing ancestor is resolved instead and the
// remaining components are re-joined onto it. That still catches a
// symlinked ancestor directory pointing out of the export root.
func canonicalize(absPath string) string {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved
	}

	probe := absPath
	for {
		parent := filepath.Dir(probe)
		if parent == probe {
			return absPath
		}
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rest, _ := filepath.Rel(parent, absPath)
			return filepath.Join(resolved, rest)
		}
		probe = parent
	}
}

// maxFilenameLen bounds generated artifact names.
const maxFilenameLen = 128

// SanitizeFilename reduces an arbitrary region identifier to a safe
// file name component: ASCII letters, digits, dot, underscore, and
// dash survive; runs of anything else collapse to one underscore.
func SanitizeFilename(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			pendingSep = false
		default:
			if !pendingSep {
				b.WriteByte('_')
				pendingSep = true
			}
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
