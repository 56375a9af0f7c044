package build

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ppiankov/kgrepair/internal/graph"
	"github.com/ppiankov/kgrepair/internal/model"
	"github.com/ppiankov/kgrepair/internal/store"
)

func family() model.FactSet {
	return model.Merge(
		model.PersonFact{Name: "Ann", BirthYear: model.Year(1980), Father: "Bob", Mother: "Carol", Parents: []string{"Dan"}},
		model.PersonFact{Name: "Eve", Father: "Bob", Parents: []string{"Fay", "Gus"}},
		model.PersonFact{Name: "Hal", Parents: []string{"Ivy"}},
	)
}

func node(name string) graph.Term { return graph.PersonNode(name) }

func TestGraph_EmptyIssuesIsBaseOnly(t *testing.T) {
	facts := family()
	g := Graph(model.NewIssueSet(), facts)

	assert.True(t, g.Equal(BaseGraph(model.NewIssueSet(), facts.WithReferenced())))
	assert.Empty(t, g.Match(graph.Any, graph.Type, graph.Man))
	assert.Empty(t, g.Match(graph.Any, graph.Type, graph.Woman))

	ann := node("Ann")
	assert.True(t, g.Has(ann, graph.Type, graph.Person))
	assert.True(t, g.Has(ann, graph.Label, graph.NewLiteral("Ann")))
	assert.True(t, g.Has(ann, graph.HasBirthYear, graph.NewInteger(1980)))
	assert.True(t, g.Has(ann, graph.HasFather, node("Bob")))
	assert.True(t, g.Has(ann, graph.HasMother, node("Carol")))
	assert.Equal(t, []graph.Term{node("Bob"), node("Carol"), node("Dan")}, g.Objects(ann, graph.HasParent))
}

func TestGraph_ReferencedPeopleAreNodes(t *testing.T) {
	facts := model.Merge(model.PersonFact{Name: "Ann", Father: "Bob"})
	g := Graph(model.NewIssueSet(), facts)

	bob := node("Bob")
	assert.True(t, g.Has(bob, graph.Type, graph.Person))
	assert.True(t, g.Has(bob, graph.Label, graph.NewLiteral("Bob")))
}

func TestGraph_FatherAndMotherImplyParent(t *testing.T) {
	g := Graph(model.NewIssueSet(model.AllIssues()...), family())
	for _, t2 := range g.Match(graph.Any, graph.HasFather, graph.Any) {
		assert.True(t, g.Has(t2.S, graph.HasParent, t2.O), "%s lacks hasParent", t2)
	}
	for _, t2 := range g.Match(graph.Any, graph.HasMother, graph.Any) {
		assert.True(t, g.Has(t2.S, graph.HasParent, t2.O), "%s lacks hasParent", t2)
	}
}

func TestGraph_Deterministic(t *testing.T) {
	issues := model.NewIssueSet(model.IssueWrongParentType, model.IssueTooManyParents)
	a, err := graph.MarshalTurtle(Graph(issues, family()))
	require.NoError(t, err)
	b, err := graph.MarshalTurtle(Graph(issues, family()))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBaseGraph_WithholdsTypeOnMissingType(t *testing.T) {
	issues := model.NewIssueSet(model.IssueMissingType)
	base := BaseGraph(issues, family().WithReferenced())
	assert.Empty(t, base.Match(graph.Any, graph.Type, graph.Any))

	healed := Graph(issues, family())
	for _, name := range family().WithReferenced().Names() {
		assert.True(t, healed.Has(node(name), graph.Type, graph.Person), "%s should be typed", name)
	}
}

func TestMissingTypeRule_Idempotent(t *testing.T) {
	facts := family().WithReferenced()
	once := BaseGraph(model.NewIssueSet(model.IssueMissingType), facts)
	addPersonTypes(once, facts)

	twice := once.Clone()
	addPersonTypes(twice, facts)

	assert.True(t, once.Equal(twice))
}

func TestWrongParentTypeRule(t *testing.T) {
	g := Graph(model.NewIssueSet(model.IssueWrongParentType), family())

	assert.True(t, g.Has(node("Bob"), graph.Type, graph.Man))
	assert.True(t, g.Has(node("Carol"), graph.Type, graph.Woman))
	assert.False(t, g.Has(node("Dan"), graph.Type, graph.Man))
	assert.Len(t, g.Match(graph.Any, graph.Type, graph.Man), 1)
}

func TestTooManyParentsRule(t *testing.T) {
	g := Graph(model.NewIssueSet(model.IssueTooManyParents), family())

	// Ann has both father and mother: collapses to exactly those two
	assert.Equal(t, []graph.Term{node("Bob"), node("Carol")}, g.Objects(node("Ann"), graph.HasParent))

	// Eve has no mother, Hal has neither: untouched
	assert.Equal(t, []graph.Term{node("Bob"), node("Fay"), node("Gus")}, g.Objects(node("Eve"), graph.HasParent))
	assert.Equal(t, []graph.Term{node("Ivy")}, g.Objects(node("Hal"), graph.HasParent))

	// the dropped parent keeps its own node
	assert.True(t, g.Has(node("Dan"), graph.Type, graph.Person))
}

func TestRules_TableOrder(t *testing.T) {
	require.Len(t, Rules, 3)
	assert.Equal(t, model.IssueMissingType, Rules[0].Issue)
	assert.Equal(t, model.IssueWrongParentType, Rules[1].Issue)
	assert.Equal(t, model.IssueTooManyParents, Rules[2].Issue)
}

type memWriter struct {
	written map[int][]byte
	err     error
}

func (w *memWriter) WriteIteration(iteration int, data []byte) (store.Artifact, error) {
	if w.err != nil {
		return store.Artifact{}, w.err
	}
	if w.written == nil {
		w.written = make(map[int][]byte)
	}
	w.written[iteration] = data
	return store.Artifact{Path: "mem", CID: store.ContentIDString(data), Size: len(data)}, nil
}

func TestBuilder_Build(t *testing.T) {
	w := &memWriter{}
	b := NewBuilder(w, zaptest.NewLogger(t))

	g, art, err := b.Build(2, model.NewIssueSet(model.IssueTooManyParents), family())
	require.NoError(t, err)
	require.Contains(t, w.written, 2)

	decoded, err := graph.DecodeTurtle(bytesReader(w.written[2]))
	require.NoError(t, err)
	assert.True(t, g.Equal(decoded))
	assert.Equal(t, store.ContentIDString(w.written[2]), art.CID)
}

func TestBuilder_BuildLatin1NamesMatchArtifact(t *testing.T) {
	w := &memWriter{}
	facts := model.Merge(model.PersonFact{Name: "Jos\xe9 Lee", Father: "Ren\xe9 Lee"})

	g, _, err := NewBuilder(w, nil).Build(1, model.NewIssueSet(), facts)
	require.NoError(t, err)

	decoded, err := graph.DecodeTurtle(bytesReader(w.written[1]))
	require.NoError(t, err)
	assert.True(t, g.Equal(decoded))
	assert.True(t, decoded.Has(graph.PersonNode("José Lee"), graph.Label, graph.NewLiteral("José Lee")))
}

func TestBuilder_BuildWriteError(t *testing.T) {
	b := NewBuilder(&memWriter{err: errors.New("disk full")}, nil)
	_, _, err := b.Build(1, model.NewIssueSet(), family())
	assert.ErrorContains(t, err, "disk full")
}

func TestBuilder_RebuildSameIterationIsIdempotent(t *testing.T) {
	s, err := store.New(t.TempDir(), "run")
	require.NoError(t, err)
	b := NewBuilder(s, nil)

	_, first, err := b.Build(1, model.NewIssueSet(), family())
	require.NoError(t, err)
	_, second, err := b.Build(1, model.NewIssueSet(), family())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, _, err = b.Build(1, model.NewIssueSet(model.IssueWrongParentType), family())
	assert.ErrorIs(t, err, store.ErrImmutable)

	info, err := os.Stat(first.Path)
	require.NoError(t, err)
	assert.Equal(t, int64(first.Size), info.Size())
}

func bytesReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }
