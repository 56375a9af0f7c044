package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"John Doe", "John Doe"},
		{"  John   Doe ", "John Doe"},
		{"John\tDoe\n", "John Doe"},
		{"", ""},
		{"   ", ""},
		{"Jos\xe9  Lee", "José Lee"},
		{"Zo\xeb Ren\xe9e", "Zoë Renée"},
		{"Ren\xe9 Müller", "René Müller"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), "input %q", tt.in)
	}
}

func TestMerge_LaterScalarsWin(t *testing.T) {
	set := Merge(
		PersonFact{Name: "Ann", BirthYear: Year(1980)},
		PersonFact{Name: " Ann ", Father: "Bob"},
		PersonFact{Name: "Ann", BirthYear: Year(1981), Parents: []string{"Dan"}},
		PersonFact{Name: "Ann", Parents: []string{"Dan", "Eve"}},
	)

	require.Len(t, set, 1)
	ann := set["Ann"]
	require.NotNil(t, ann.BirthYear)
	assert.Equal(t, 1981, *ann.BirthYear)
	assert.Equal(t, "Bob", ann.Father)
	assert.Equal(t, []string{"Dan", "Eve"}, ann.Parents)
}

func TestMerge_DoesNotAliasFragments(t *testing.T) {
	parents := []string{"Dan"}
	year := 1990
	frag := PersonFact{Name: "Ann", BirthYear: &year, Parents: parents}

	set := Merge(frag, PersonFact{Name: "Ann", Parents: []string{"Eve"}})

	year = 2000
	parents[0] = "Zed"
	assert.Equal(t, 1990, *set["Ann"].BirthYear)
	assert.Equal(t, []string{"Dan", "Eve"}, set["Ann"].Parents)
}

func TestMerge_DropsEmptyNames(t *testing.T) {
	set := Merge(PersonFact{Name: "  "}, PersonFact{Name: "Ann"})
	assert.Equal(t, []string{"Ann"}, set.Names())
}

func TestFactSet_WithReferenced(t *testing.T) {
	set := Merge(PersonFact{Name: "Ann", Father: "Bob", Mother: "Carol", Parents: []string{"Dan"}})

	full := set.WithReferenced()

	assert.Equal(t, []string{"Ann", "Bob", "Carol", "Dan"}, full.Names())
	assert.Equal(t, PersonFact{Name: "Bob", Parents: []string{}}, full["Bob"])
	assert.Len(t, set, 1, "original set must not change")
}

func TestPersonFact_References(t *testing.T) {
	f := PersonFact{Name: "Ann", Father: "Bob", Mother: "Carol", Parents: []string{"Bob", "Dan"}}
	assert.Equal(t, []string{"Bob", "Carol", "Dan"}, f.References())
	assert.Empty(t, PersonFact{Name: "Solo"}.References())
}
