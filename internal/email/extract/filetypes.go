package extract

import "strings"

// FileTypeExtensions maps a category name to the extensions it covers.
// The "all" category is empty, meaning no restriction.
var FileTypeExtensions = map[string][]string{
	"pdf":           {".pdf"},
	"images":        {".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".tiff"},
	"documents":     {".doc", ".docx", ".odt", ".rtf", ".txt"},
	"spreadsheets":  {".xls", ".xlsx", ".csv", ".ods"},
	"presentations": {".ppt", ".pptx", ".odp"},
	"archives":      {".zip", ".rar", ".7z", ".tar", ".gz"},
	"all":           {},
}

// ExtensionsForTypes resolves category names into a flat extension list.
// A nil result means every file type is allowed; that happens for an
// empty input, for the "all" category, and when no name resolves.
func ExtensionsForTypes(typeNames []string) []string {
	if len(typeNames) == 0 {
		return nil
	}

	var extensions []string
	for _, name := range typeNames {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "all" {
			return nil
		}
		if exts, ok := FileTypeExtensions[name]; ok {
			extensions = append(extensions, exts...)
		}
	}
	return extensions
}
