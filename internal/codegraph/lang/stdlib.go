package lang

// StdlibAllowList is the bundled per-language set of module/package names
// excluded from the entry-points category: an import node for `os` or `re`
// must never be reported as an entry point just because nothing in the
// scanned project imports it.
var StdlibAllowList = map[string]map[string]bool{
	"go": setOf("fmt", "os", "io", "net/http", "strings", "strconv", "time",
		"context", "sync", "errors", "bytes", "encoding/json", "path/filepath"),
	"python": setOf("os", "re", "sys", "json", "typing", "collections",
		"itertools", "functools", "asyncio", "logging", "pathlib"),
	"javascript": setOf("fs", "path", "http", "https", "events", "util", "stream"),
	"typescript": setOf("fs", "path", "http", "https", "events", "util", "stream"),
	"java":       setOf("java.util", "java.io", "java.lang", "java.net", "java.time"),
	"c":          setOf("stdio.h", "stdlib.h", "string.h", "unistd.h", "errno.h"),
	"cpp":        setOf("iostream", "vector", "string", "memory", "algorithm"),
	"rust":       setOf("std", "core", "alloc"),
	"ruby":       setOf("json", "set", "logger", "uri", "net/http"),
}

func setOf(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// IsStdlib reports whether name is a recognized standard-library module for
// language.
func IsStdlib(language, name string) bool {
	allow, ok := StdlibAllowList[language]
	if !ok {
		return false
	}
	return allow[name]
}
