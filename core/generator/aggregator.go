package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adalundhe/instructgen/core/budget"
	"github.com/adalundhe/instructgen/core/dataset"
	"github.com/adalundhe/instructgen/core/textnorm"
)

// Structural suffixes are answered from metadata verbatim.
var structuralSuffixes = []string{"code_graph", "docstring"}

// CodeElementsKey wraps the aggregate of earlier answers.
const CodeElementsKey = "Code Elements"

// detailQuery asks for the purpose of one code element.
const detailQuery = "Describe the purpose and significance of these %s: [%s] within the code."

// detailHeading precedes a detailed answer appended to a record.
const detailHeading = "\n\nPurpose and Significance:\n"

// resolve answers one request and appends the record when the answer is
// usable.
func (g *Generator) resolve(ctx context.Context, req request) {
	id := req.question.ID
	value, _ := req.info.Get(id)

	var response string
	switch {
	case hasAnySuffix(id, structuralSuffixes):
		response = dataset.Stringify(value)
	case g.useLLM && strings.HasSuffix(id, purposeSuffix):
		response = g.queryModel(ctx, req)
	default:
		response = textnorm.Normalize(dataset.Stringify(value))
	}

	response = strings.TrimSpace(response)
	if response == "" || response == "None" {
		g.logger.Debug("no answer", "unit", req.unit)
		return
	}
	g.records = append(g.records, dataset.InstructRecord{
		Instruction: req.query,
		Input:       g.fence(req.context),
		Output:      response,
	})
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// element is one Code Elements entry. raw is the label before reordering;
// detailed answers attach to the first record whose instruction starts
// with it.
type element struct {
	label string
	raw   string
	value string
}

// codeElements derives the aggregate from the records so far. A repeated
// label keeps its first position and takes the latest answer.
func (g *Generator) codeElements() []element {
	var (
		out   []element
		index = make(map[string]int)
	)
	for _, rec := range g.records {
		if hasAnyPrefix(rec.Instruction, g.cfg.ExcludedPrefixes) {
			continue
		}
		raw := elementLabel(rec.Instruction, g.cfg.LabelConnectives)
		label := reorderLabel(raw)
		if i, ok := index[label]; ok {
			out[i].raw, out[i].value = raw, rec.Output
			continue
		}
		index[label] = len(out)
		out = append(out, element{label: label, raw: raw, value: rec.Output})
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// elementLabel cuts an instruction at its earliest connective phrase.
func elementLabel(instruction string, connectives []string) string {
	cut := len(instruction)
	for _, c := range connectives {
		if c == "" {
			continue
		}
		if i := strings.Index(instruction, c); i >= 0 && i < cut {
			cut = i
		}
	}
	return strings.TrimSpace(instruction[:cut])
}

// reorderLabel turns "`X` kind" phrasing into "kind `X`" by swapping the
// first and last words of labels that contain a backtick.
func reorderLabel(label string) string {
	if !strings.Contains(label, "`") {
		return label
	}
	words := strings.Fields(label)
	if len(words) < 2 {
		return label
	}
	return words[len(words)-1] + " " + words[0]
}

func aggregate(elements []element) *dataset.Record {
	inner := dataset.NewRecord()
	for _, e := range elements {
		inner.Set(e.label, e.value)
	}
	return dataset.RecordOf(CodeElementsKey, inner)
}

// ladder is the degradation order for model context: the request's own
// context, the simplified file code, the file summary, then nothing.
func (g *Generator) ladder(raw string) []budget.Candidate {
	info := g.details.FileInfo
	return []budget.Candidate{
		budget.Static(raw),
		func() string { return g.fence(info.String(dataset.FieldFileCodeSimplified)) },
		func() string {
			summary, _ := info.Get(dataset.FieldFileSummary)
			return g.fence(textnorm.InfoString(summary))
		},
		budget.Static(""),
	}
}

// queryModel answers a purpose question with the Code Elements aggregate
// folded into the context. Failures yield an empty answer.
func (g *Generator) queryModel(ctx context.Context, req request) string {
	elements := g.codeElements()
	agg := aggregate(elements)
	compact, err := json.Marshal(agg)
	if err != nil {
		g.logFailure(req.unit, err)
		return ""
	}

	fitted, err := g.fitter.Fit(func(candidate string) (string, error) {
		return g.answerStage.Fill(candidate+"\n"+string(compact), req.query)
	}, g.ladder(req.context)...)
	if err != nil {
		g.logFailure(req.unit, withUnit(err, req.unit), "query", req.query)
		return ""
	}
	g.logger.Info("context fitted", "unit", req.unit, "tokens", fitted.Tokens, "candidate", fitted.Index)
	fullContext := fitted.Context + "\n" + string(compact)

	var response string
	raw, err := g.complete(ctx, req.unit, fitted.Prompt, false)
	if err != nil {
		g.logFailure(req.unit, err, "prompt", fitted.Prompt)
	} else {
		pretty, _ := json.MarshalIndent(agg, "", "    ")
		response = raw + "\n" + string(pretty)
		g.logger.Debug("model response", "unit", req.unit, "response", response)
	}

	if g.detailed {
		g.describeElements(ctx, req.unit, fullContext, elements)
	}
	return response
}

// describeElements asks for the purpose of every code element and appends
// each answer to the first record the element was derived from.
func (g *Generator) describeElements(ctx context.Context, unit, fullContext string, elements []element) {
	for _, e := range elements {
		if ctx.Err() != nil {
			return
		}
		query := fmt.Sprintf(detailQuery, e.raw, e.value)
		prompt, err := g.answerStage.Fill(fullContext, query)
		if err != nil {
			g.logFailure(unit, withUnit(err, unit), "element", e.label)
			continue
		}
		resp, err := g.complete(ctx, unit, prompt, false)
		if err != nil {
			g.logFailure(unit, err, "element", e.label, "prompt", prompt)
			continue
		}
		g.logger.Debug("element response", "unit", unit, "element", e.label, "response", resp)

		for i := range g.records {
			if strings.HasPrefix(g.records[i].Instruction, e.raw) {
				g.records[i].Output += detailHeading + resp
				break
			}
		}
	}
}
