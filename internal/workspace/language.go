package workspace

import (
	"path/filepath"
	"strings"
)

var languages = map[string]string{
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".css":   "css",
	".dart":  "dart",
	".ex":    "elixir",
	".exs":   "elixir",
	".go":    "go",
	".html":  "html",
	".java":  "java",
	".js":    "javascript",
	".jsx":   "javascriptreact",
	".mjs":   "javascript",
	".json":  "json",
	".kt":    "kotlin",
	".lua":   "lua",
	".md":    "markdown",
	".php":   "php",
	".py":    "python",
	".rb":    "ruby",
	".rs":    "rust",
	".scala": "scala",
	".scss":  "scss",
	".sh":    "shellscript",
	".sql":   "sql",
	".swift": "swift",
	".toml":  "toml",
	".ts":    "typescript",
	".tsx":   "typescriptreact",
	".vue":   "vue",
	".xml":   "xml",
	".yaml":  "yaml",
	".yml":   "yaml",
	".zig":   "zig",
}

var fileNames = map[string]string{
	"Dockerfile": "dockerfile",
	"Makefile":   "makefile",
	"go.mod":     "go.mod",
}

// LanguageForPath returns the editor language id for path, or
// "plaintext" when the extension is unknown.
func LanguageForPath(path string) string {
	base := filepath.Base(path)
	if lang, ok := fileNames[base]; ok {
		return lang
	}
	if lang, ok := languages[strings.ToLower(filepath.Ext(base))]; ok {
		return lang
	}
	return "plaintext"
}
