package s3proxy

import (
	"maps"
	"path"
	"strings"
)

// DefaultMimeType is used for keys whose extension has no mapping.
const DefaultMimeType = "application/octet-stream"

var defaultExtensions = map[string]string{
	".aac":   "audio/aac",
	".avif":  "image/avif",
	".bmp":   "image/bmp",
	".bz2":   "application/x-bzip2",
	".css":   "text/css",
	".csv":   "text/csv",
	".doc":   "application/msword",
	".docx":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".epub":  "application/epub+zip",
	".exe":   "application/x-msdownload",
	".fits":  "application/fits",
	".flac":  "audio/flac",
	".gif":   "image/gif",
	".gz":    "application/gzip",
	".h5":    "application/x-hdf5",
	".hdf5":  "application/x-hdf5",
	".htm":   "text/html",
	".html":  "text/html",
	".ico":   "image/vnd.microsoft.icon",
	".ics":   "text/calendar",
	".jpe":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".jpg":   "image/jpeg",
	".js":    "text/javascript",
	".json":  "application/json",
	".md":    "text/markdown",
	".mjs":   "text/javascript",
	".mov":   "video/quicktime",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
	".mpeg":  "video/mpeg",
	".mpg":   "video/mpeg",
	".oga":   "audio/ogg",
	".ogg":   "audio/ogg",
	".ogv":   "video/ogg",
	".ogx":   "application/ogg",
	".parq":  "application/vnd.apache.parquet",
	".pdf":   "application/pdf",
	".png":   "image/png",
	".ppt":   "application/vnd.ms-powerpoint",
	".pptx":  "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".py":    "text/x-python",
	".rtf":   "application/rtf",
	".sh":    "application/x-sh",
	".svg":   "image/svg+xml",
	".tar":   "application/x-tar",
	".tif":   "image/tiff",
	".tiff":  "image/tiff",
	".tsv":   "text/tab-separated-values",
	".txt":   "text/plain",
	".wasm":  "application/wasm",
	".wav":   "audio/wav",
	".weba":  "audio/webm",
	".webm":  "video/webm",
	".webp":  "image/webp",
	".xhtml": "application/xhtml+xml",
	".xls":   "application/vnd.ms-excel",
	".xlsx":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xml":   "text/xml",
	".yaml":  "application/yaml",
	".yml":   "application/yaml",
	".zip":   "application/zip",
}

// encodingSuffixes are content encodings rather than content types. A key
// ending in one of them is typed by the extension underneath when it has one.
var encodingSuffixes = map[string]struct{}{
	".br":  {},
	".bz2": {},
	".gz":  {},
	".xz":  {},
	".z":   {},
}

// suffixAliases expand shorthand archive extensions before lookup.
var suffixAliases = map[string]string{
	".taz":  ".tar.gz",
	".tbz2": ".tar.bz2",
	".tgz":  ".tar.gz",
	".txz":  ".tar.xz",
	".tz":   ".tar.gz",
}

// MimeTable maps lowercase file extensions (with the leading dot) to MIME types.
// It is never modified after construction and is safe for concurrent reads.
type MimeTable struct {
	types map[string]string
}

// DefaultMimeTable returns the built-in extension table.
func DefaultMimeTable() MimeTable {
	return NewMimeTable(nil)
}

// NewMimeTable returns the built-in table with overrides applied on top.
// Override keys may be given with or without the leading dot and in any case.
// An override with an empty type removes the extension from the table.
func NewMimeTable(overrides map[string]string) MimeTable {
	types := maps.Clone(defaultExtensions)
	for ext, mimeType := range overrides {
		ext = normalizeExt(ext)
		if ext == "" {
			continue
		}
		mimeType = strings.TrimSpace(mimeType)
		if mimeType == "" {
			delete(types, ext)
			continue
		}
		types[ext] = strings.ToLower(mimeType)
	}
	return MimeTable{types: types}
}

// Guess infers the MIME type of key from the extension of its last path segment.
// A trailing compression suffix such as ".gz" is skipped when the name
// underneath carries a mapped extension, so "data.tar.gz" is "application/x-tar".
// It returns DefaultMimeType when there is no extension or no mapping.
func (t MimeTable) Guess(key string) string {
	name := key[strings.LastIndex(key, "/")+1:]
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return DefaultMimeType
	}
	if alias, ok := suffixAliases[ext]; ok {
		name = strings.TrimSuffix(name, path.Ext(name)) + alias
		ext = strings.ToLower(path.Ext(name))
	}
	if _, ok := encodingSuffixes[ext]; ok {
		inner := strings.ToLower(path.Ext(strings.TrimSuffix(name, path.Ext(name))))
		if mimeType, ok := t.types[inner]; ok && inner != "" {
			return mimeType
		}
	}
	if mimeType, ok := t.types[ext]; ok {
		return mimeType
	}
	return DefaultMimeType
}

// Len returns the number of mapped extensions.
func (t MimeTable) Len() int {
	return len(t.types)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
