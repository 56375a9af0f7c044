// Package build turns facts plus the current issue set into a graph.
//
// Construction has two phases. The base build emits the triples derivable
// from the facts. The repair rules then run in table order, each one only
// when its issue is present. Nothing is carried over from an earlier
// iteration: every call derives the graph from its inputs.
package build

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/kgrepair/internal/graph"
	"github.com/ppiankov/kgrepair/internal/model"
	"github.com/ppiankov/kgrepair/internal/store"
)

// Rule is a repair applied when its issue is in the current issue set.
type Rule struct {
	Issue model.Issue
	Name  string
	Apply func(g *graph.Graph, facts model.FactSet)
}

// Rules is the fixed, ordered repair table. wrong_parent_type and
// too_many_parents read the parent edges written by the base build, so the
// order matters.
var Rules = []Rule{
	{Issue: model.IssueMissingType, Name: "type every person", Apply: addPersonTypes},
	{Issue: model.IssueWrongParentType, Name: "type fathers and mothers", Apply: typeParents},
	{Issue: model.IssueTooManyParents, Name: "collapse to father and mother", Apply: collapseParents},
}

// ArtifactWriter persists the serialized graph of an iteration.
type ArtifactWriter interface {
	WriteIteration(iteration int, data []byte) (store.Artifact, error)
}

// Builder builds and persists one graph per iteration.
type Builder struct {
	writer ArtifactWriter
	logger *zap.Logger
}

// NewBuilder returns a builder writing artifacts through writer.
func NewBuilder(writer ArtifactWriter, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{writer: writer, logger: logger}
}

// Build derives the graph for an iteration and writes it as Turtle.
func (b *Builder) Build(iteration int, issues model.IssueSet, facts model.FactSet) (*graph.Graph, store.Artifact, error) {
	g := Graph(issues, facts)

	data, err := graph.MarshalTurtle(g)
	if err != nil {
		return nil, store.Artifact{}, fmt.Errorf("serialize graph: %w", err)
	}
	art, err := b.writer.WriteIteration(iteration, data)
	if err != nil {
		return nil, store.Artifact{}, fmt.Errorf("write artifact: %w", err)
	}

	b.logger.Debug("graph built",
		zap.Int("iteration", iteration),
		zap.Strings("issues", issues.Strings()),
		zap.Int("triples", g.Len()),
		zap.String("path", art.Path),
		zap.String("cid", art.CID))
	return g, art, nil
}

// Graph runs both phases without writing anything.
func Graph(issues model.IssueSet, facts model.FactSet) *graph.Graph {
	people := facts.WithReferenced()
	g := BaseGraph(issues, people)
	ApplyRules(g, issues, people)
	return g
}

// BaseGraph emits the phase-one triples. The Person type is withheld when
// missing_type is in issues; this is the only place phase one reads issues.
func BaseGraph(issues model.IssueSet, facts model.FactSet) *graph.Graph {
	g := graph.New()
	withholdType := issues.Has(model.IssueMissingType)

	for _, name := range facts.Names() {
		f := facts[name]
		person := graph.PersonNode(name)

		if !withholdType {
			g.Add(person, graph.Type, graph.Person)
		}
		g.Add(person, graph.Label, graph.NewLiteral(f.Name))

		if f.BirthYear != nil {
			g.Add(person, graph.HasBirthYear, graph.NewInteger(*f.BirthYear))
		}
		if f.Father != "" {
			father := graph.PersonNode(f.Father)
			g.Add(person, graph.HasFather, father)
			g.Add(person, graph.HasParent, father)
		}
		if f.Mother != "" {
			mother := graph.PersonNode(f.Mother)
			g.Add(person, graph.HasMother, mother)
			g.Add(person, graph.HasParent, mother)
		}
		for _, p := range f.Parents {
			g.Add(person, graph.HasParent, graph.PersonNode(p))
		}
	}
	return g
}

// ApplyRules runs the repair table against g in order.
func ApplyRules(g *graph.Graph, issues model.IssueSet, facts model.FactSet) {
	for _, rule := range Rules {
		if issues.Has(rule.Issue) {
			rule.Apply(g, facts)
		}
	}
}

func addPersonTypes(g *graph.Graph, facts model.FactSet) {
	for _, name := range facts.Names() {
		g.Add(graph.PersonNode(name), graph.Type, graph.Person)
	}
}

func typeParents(g *graph.Graph, _ model.FactSet) {
	for _, t := range g.Match(graph.Any, graph.HasFather, graph.Any) {
		g.Add(t.O, graph.Type, graph.Man)
	}
	for _, t := range g.Match(graph.Any, graph.HasMother, graph.Any) {
		g.Add(t.O, graph.Type, graph.Woman)
	}
}

func collapseParents(g *graph.Graph, facts model.FactSet) {
	for _, name := range facts.Names() {
		person := graph.PersonNode(name)
		father, hasFather := g.Object(person, graph.HasFather)
		mother, hasMother := g.Object(person, graph.HasMother)
		if !hasFather || !hasMother {
			continue
		}
		for _, parent := range g.Objects(person, graph.HasParent) {
			if parent != father && parent != mother {
				g.Remove(person, graph.HasParent, parent)
			}
		}
	}
}
