package model

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// PersonFact is the extracted record for a single person.
// Records are values: once handed to the core they are never modified.
type PersonFact struct {
	Name      string   `json:"name" yaml:"name"`
	BirthYear *int     `json:"birth_year,omitempty" yaml:"birth_year,omitempty"`
	Father    string   `json:"father,omitempty" yaml:"father,omitempty"`
	Mother    string   `json:"mother,omitempty" yaml:"mother,omitempty"`
	Parents   []string `json:"parents" yaml:"parents"`
}

// FactSet maps a normalized person name to its record.
type FactSet map[string]PersonFact

// NormalizeName trims a name and collapses inner whitespace to single spaces.
// Bytes that are not valid UTF-8 are read as ISO-8859-1, so names from
// Latin-1 input keep their letters.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(toUTF8(s)), " ")
}

func toUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			r = charmap.ISO8859_1.DecodeByte(s[i])
		}
		b.WriteRune(r)
		i += size
	}
	return b.String()
}

// Year returns a pointer to y, for building records with a birth year.
func Year(y int) *int {
	return &y
}

// References returns every person name the record points at (father,
// mother, then generic parents), without duplicates.
func (f PersonFact) References() []string {
	var refs []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		refs = append(refs, name)
	}
	add(f.Father)
	add(f.Mother)
	for _, p := range f.Parents {
		add(p)
	}
	return refs
}

// Normalized returns a copy of the record with every name normalized.
func (f PersonFact) Normalized() PersonFact {
	out := PersonFact{
		Name:    NormalizeName(f.Name),
		Father:  NormalizeName(f.Father),
		Mother:  NormalizeName(f.Mother),
		Parents: make([]string, 0, len(f.Parents)),
	}
	if f.BirthYear != nil {
		out.BirthYear = Year(*f.BirthYear)
	}
	for _, p := range f.Parents {
		if n := NormalizeName(p); n != "" {
			out.Parents = append(out.Parents, n)
		}
	}
	return out
}

// Merge folds fragment records into a FactSet, in order.
//
// Scalar fields of later fragments overwrite earlier ones; parent lists are
// concatenated and deduplicated keeping first occurrence. Fragments with an
// empty name are dropped.
func Merge(fragments ...PersonFact) FactSet {
	set := make(FactSet)
	for _, frag := range fragments {
		frag = frag.Normalized()
		if frag.Name == "" {
			continue
		}
		cur, ok := set[frag.Name]
		if !ok {
			cur = PersonFact{Name: frag.Name, Parents: []string{}}
		} else {
			cur = cur.clone()
		}
		if frag.BirthYear != nil {
			cur.BirthYear = Year(*frag.BirthYear)
		}
		if frag.Father != "" {
			cur.Father = frag.Father
		}
		if frag.Mother != "" {
			cur.Mother = frag.Mother
		}
		for _, p := range frag.Parents {
			if !contains(cur.Parents, p) {
				cur.Parents = append(cur.Parents, p)
			}
		}
		set[frag.Name] = cur
	}
	return set
}

// Names returns the person names in sorted order.
func (s FactSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithReferenced returns a new FactSet in which every father, mother and
// parent referenced by a record also has a record of its own.
func (s FactSet) WithReferenced() FactSet {
	out := make(FactSet, len(s))
	for name, f := range s {
		out[name] = f
	}
	for _, name := range s.Names() {
		for _, ref := range s[name].References() {
			if _, ok := out[ref]; !ok {
				out[ref] = PersonFact{Name: ref, Parents: []string{}}
			}
		}
	}
	return out
}

func (f PersonFact) clone() PersonFact {
	c := f
	if f.BirthYear != nil {
		c.BirthYear = Year(*f.BirthYear)
	}
	c.Parents = append([]string(nil), f.Parents...)
	if c.Parents == nil {
		c.Parents = []string{}
	}
	return c
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
