// Package sources lists the log sources the tenant monitoring API can tail.
package sources

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Default is the source tailed when none is configured.
const Default = "am-core"

// Source describes one named log stream.
type Source struct {
	Name    string
	Product string
	Kind    string
	Debug   bool
}

// Label returns a human readable name such as "AM Core".
func (s Source) Label() string {
	kind := strings.ReplaceAll(s.Kind, "-", " ")
	return strings.ToUpper(s.Product) + " " + cases.Title(language.English).String(kind)
}

var catalog = []Source{
	{Name: "am-access", Product: "am", Kind: "access"},
	{Name: "am-activity", Product: "am", Kind: "activity"},
	{Name: "am-authentication", Product: "am", Kind: "authentication"},
	{Name: "am-config", Product: "am", Kind: "config"},
	{Name: "am-core", Product: "am", Kind: "core", Debug: true},
	{Name: "am-everything", Product: "am", Kind: "everything"},
	{Name: "ctsstore", Product: "ctsstore", Kind: "core"},
	{Name: "ctsstore-access", Product: "ctsstore", Kind: "access"},
	{Name: "ctsstore-config-audit", Product: "ctsstore", Kind: "config-audit"},
	{Name: "ctsstore-upgrade", Product: "ctsstore", Kind: "upgrade"},
	{Name: "idm-access", Product: "idm", Kind: "access"},
	{Name: "idm-activity", Product: "idm", Kind: "activity"},
	{Name: "idm-authentication", Product: "idm", Kind: "authentication"},
	{Name: "idm-config", Product: "idm", Kind: "config"},
	{Name: "idm-core", Product: "idm", Kind: "core", Debug: true},
	{Name: "idm-everything", Product: "idm", Kind: "everything"},
	{Name: "idm-sync", Product: "idm", Kind: "sync"},
	{Name: "userstore", Product: "userstore", Kind: "core"},
	{Name: "userstore-access", Product: "userstore", Kind: "access"},
	{Name: "userstore-config-audit", Product: "userstore", Kind: "config-audit"},
	{Name: "userstore-ldif-importer", Product: "userstore", Kind: "ldif-importer"},
	{Name: "userstore-upgrade", Product: "userstore", Kind: "upgrade"},
}

var byName = func() map[string]Source {
	m := make(map[string]Source, len(catalog))
	for _, src := range catalog {
		m[src.Name] = src
	}
	return m
}()

// All returns every known source ordered by name.
func All() []Source {
	out := make([]Source, len(catalog))
	copy(out, catalog)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a source by name. Names are matched case-insensitively after
// trimming.
func Lookup(name string) (Source, bool) {
	src, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return src, ok
}

// Valid reports whether name is a known source.
func Valid(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// Names returns all source names ordered by name.
func Names() []string {
	all := All()
	names := make([]string, 0, len(all))
	for _, src := range all {
		names = append(names, src.Name)
	}
	return names
}
