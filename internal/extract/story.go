package extract

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/kgrepair/internal/model"
)

// Sentence patterns, one sentence per line. Father and mother sentences
// attach to the most recent subject.
var (
	bornPattern   = regexp.MustCompile(`^(?P<child>.+?) was born in (?P<year>\d{4})\.$`)
	fatherPattern = regexp.MustCompile(`^(?:His|Her) father is (?P<father>.+?)\.$`)
	motherPattern = regexp.MustCompile(`^(?:His|Her) mother is (?P<mother>.+?)\.$`)
	parentPattern = regexp.MustCompile(`^(?P<child>.+?) has parent (?P<parent>.+?)\.$`)
)

// StoryStats counts what the extractor did with its input.
type StoryStats struct {
	Lines   int // non-blank lines
	Parsed  int
	Skipped int
}

// StoryExtractor reads genealogy sentences into facts.
type StoryExtractor struct {
	logger *zap.Logger
}

// NewStoryExtractor returns an extractor; a nil logger discards output.
func NewStoryExtractor(logger *zap.Logger) *StoryExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoryExtractor{logger: logger}
}

// Extract parses text. Lines matching no pattern are skipped.
func (e *StoryExtractor) Extract(r io.Reader) (model.FactSet, StoryStats, error) {
	var (
		fragments []model.PersonFact
		stats     StoryStats
		subject   string
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		stats.Lines++

		parsed := true
		switch {
		case bornPattern.MatchString(line):
			m := bornPattern.FindStringSubmatch(line)
			year, _ := strconv.Atoi(m[2])
			subject = model.NormalizeName(m[1])
			fragments = append(fragments, model.PersonFact{Name: subject, BirthYear: model.Year(year)})

		case fatherPattern.MatchString(line) && subject != "":
			father := model.NormalizeName(fatherPattern.FindStringSubmatch(line)[1])
			fragments = append(fragments,
				model.PersonFact{Name: subject, Father: father},
				model.PersonFact{Name: father})

		case motherPattern.MatchString(line) && subject != "":
			mother := model.NormalizeName(motherPattern.FindStringSubmatch(line)[1])
			fragments = append(fragments,
				model.PersonFact{Name: subject, Mother: mother},
				model.PersonFact{Name: mother})

		case parentPattern.MatchString(line):
			m := parentPattern.FindStringSubmatch(line)
			subject = model.NormalizeName(m[1])
			parent := model.NormalizeName(m[2])
			fragments = append(fragments,
				model.PersonFact{Name: subject, Parents: []string{parent}},
				model.PersonFact{Name: parent})

		default:
			parsed = false
		}

		if parsed {
			stats.Parsed++
		} else {
			stats.Skipped++
			e.logger.Debug("unparsed line", zap.String("line", line))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, stats, err
	}
	return model.Merge(fragments...), stats, nil
}
