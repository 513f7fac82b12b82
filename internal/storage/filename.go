package storage

import (
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

	allowedExtensions = map[string]string{
		"png":  "image/png",
		"jpg":  "image/jpeg",
		"jpeg": "image/jpeg",
		"gif":  "image/gif",
		"webp": "image/webp",
	}
)

// SanitizeFilename reduces an uploaded filename to a safe flat name: path
// separators become spaces, whitespace runs become underscores, anything
// outside [A-Za-z0-9_.-] is dropped and leading or trailing dots and
// underscores are trimmed. The result may be empty.
func SanitizeFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// Extension returns the lower cased extension of name without the dot, or
// "" when name has none.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

func AllowedFile(name string) bool {
	_, ok := allowedExtensions[Extension(name)]
	return ok
}

func ContentTypeFor(name string) string {
	if ct, ok := allowedExtensions[Extension(name)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ObjectName derives the stored name for an upload. A short random prefix
// keeps two uploads with the same original name from replacing each other.
// The original extension is kept even when sanitizing stripped it.
func ObjectName(original string) string {
	name := SanitizeFilename(original)
	if ext := Extension(original); ext != "" && Extension(name) != ext {
		if name == "" {
			name = "image"
		}
		name += "." + ext
	}
	return uuid.New().String()[:8] + "_" + name
}

func validObjectName(name string) bool {
	return name != "" && name != "." && name != ".." && path.Base(name) == name && !strings.Contains(name, "\\")
}
