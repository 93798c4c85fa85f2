package render

import (
	"strconv"
	"strings"
)

// illegal strips the characters Windows and most filesystems reject in
// path components. Applied to attachment names and to folder/document
// names derived from chat names.
var illegal = strings.NewReplacer(
	"<", "", ">", "", ":", "", `"`, "", "/", "", `\`, "", "*", "", "|", "", "?", "",
)

// Sanitize returns name with filesystem-illegal characters removed.
func Sanitize(name string) string {
	return illegal.Replace(name)
}

// Registry tracks the local filenames claimed during one export job,
// including names already on disk before the job started. It is job-scoped
// and reset per export.
type Registry struct {
	used map[string]struct{}
}

// NewRegistry creates an empty filename registry.
func NewRegistry() *Registry {
	return &Registry{used: make(map[string]struct{})}
}

// Seed claims names that are already taken, typically the files present in
// the media folder before the job starts, so freshly generated names never
// collide with them.
func (r *Registry) Seed(names ...string) {
	for _, n := range names {
		r.used[n] = struct{}{}
	}
}

// Dedupe sanitizes raw and returns a collision-free local filename,
// claiming it in the registry. Names without an extension are returned
// unchanged. Otherwise internal dots in the stem become underscores and an
// incrementing integer suffix is appended to the stem until the candidate
// is free.
func (r *Registry) Dedupe(raw string) string {
	name := Sanitize(raw)
	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		r.used[name] = struct{}{}
		return name
	}
	stem := strings.ReplaceAll(name[:dot], ".", "_")
	ext := name[dot+1:]
	for n := 1; ; n++ {
		candidate := stem + strconv.Itoa(n) + "." + ext
		if _, taken := r.used[candidate]; !taken {
			r.used[candidate] = struct{}{}
			return candidate
		}
	}
}
