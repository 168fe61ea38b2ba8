package generator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/instructgen/core/config"
	"github.com/adalundhe/instructgen/core/dataset"
)

// =============================================================================
// resolve
// =============================================================================

func TestResolve_DropsEmptyAndNone(t *testing.T) {
	g := newGenerator(t, Options{})

	for _, id := range []string{"function_docstring", "function_calls"} {
		for _, req := range g.route(dataset.Question{Type: dataset.QuestionFunction, ID: id, Text: id}) {
			g.resolve(context.Background(), req)
		}
	}
	assert.Empty(t, g.records)
}

func TestResolve_KeepsDuplicateInstructions(t *testing.T) {
	g := newGenerator(t, Options{})
	q := dataset.Question{Type: dataset.QuestionFile, ID: "file_dependencies", Text: "Deps?"}

	for i := 0; i < 2; i++ {
		for _, req := range g.route(q) {
			g.resolve(context.Background(), req)
		}
	}
	require.Len(t, g.records, 2)
	assert.Equal(t, g.records[0], g.records[1])
}

func TestResolve_StructuralFieldIsVerbatim(t *testing.T) {
	g := newGenerator(t, Options{})
	q := dataset.Question{Type: dataset.QuestionFile, ID: "entire_code_graph", Text: "Graph of {filename}?"}

	for _, req := range g.route(q) {
		g.resolve(context.Background(), req)
	}
	require.Len(t, g.records, 1)
	assert.Equal(t, `{"nodes":["foo"],"edges":[]}`, g.records[0].Output)
}

func TestResolve_PurposeWithoutModelIsNormalized(t *testing.T) {
	g := newGenerator(t, Options{})
	q := dataset.Question{Type: dataset.QuestionFunction, ID: "function_purpose", Text: "{function_name}"}

	for _, req := range g.route(q) {
		g.resolve(context.Background(), req)
	}
	require.Len(t, g.records, 1)
	assert.Equal(t, "returns, its input", g.records[0].Output)
}

func TestResolve_CodeLanguageFence(t *testing.T) {
	cfg := testConfig()
	cfg.CodeLanguage = "py"
	g := newGenerator(t, Options{Config: cfg})

	for _, req := range g.route(dataset.Question{Type: dataset.QuestionFile, ID: "file_dependencies", Text: "x"}) {
		g.resolve(context.Background(), req)
	}
	require.Len(t, g.records, 1)
	assert.True(t, strings.HasPrefix(g.records[0].Input, "```py\n"))
}

// =============================================================================
// Code Elements
// =============================================================================

func TestElementLabel(t *testing.T) {
	connectives := config.DefaultLabelConnectives

	tests := []struct {
		instruction string
		expected    string
	}{
		{"What are the inputs to foo in the Python file: mod.py?", "What are the inputs to foo"},
		{"Functions defined are in the Python file mod.py", "Functions defined"},
		{"Calls of the Python file x in the Python file y", "Calls"},
		{"Inheritance in Python file: mod.py", "Inheritance"},
		{"  No connective here  ", "No connective here"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, elementLabel(tt.instruction, connectives), tt.instruction)
	}
}

func TestReorderLabel(t *testing.T) {
	assert.Equal(t, "function `foo`", reorderLabel("`foo` function"))
	assert.Equal(t, "Inputs `x`", reorderLabel("`x` are the Inputs"))
	assert.Equal(t, "plain label", reorderLabel("plain label"))
	assert.Equal(t, "`solo`", reorderLabel("`solo`"))
}

func TestCodeElements_ExcludesPrefixesAndLastWriteWins(t *testing.T) {
	g := newGenerator(t, Options{})
	g.records = []dataset.InstructRecord{
		{Instruction: "Variables in the Python file a", Output: "first"},
		{Instruction: "Call code graph in the Python file a", Output: "graph"},
		{Instruction: "Docstring of foo", Output: "doc"},
		{Instruction: "Returns in the Python file a", Output: "r"},
		{Instruction: "Variables in the Python file b", Output: "second"},
	}

	elements := g.codeElements()

	require.Len(t, elements, 2)
	assert.Equal(t, element{label: "Variables", raw: "Variables", value: "second"}, elements[0])
	assert.Equal(t, element{label: "Returns", raw: "Returns", value: "r"}, elements[1])

	b, err := aggregate(elements).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"Code Elements":{"Variables":"second","Returns":"r"}}`, string(b))
}

// =============================================================================
// LLM query protocol
// =============================================================================

var inputsQuestion = dataset.Question{
	Type: dataset.QuestionFunction,
	ID:   "function_inputs",
	Text: "What are the inputs to the function {function_name} in the Python file {filename}?",
}

var purposeQuestion = dataset.Question{
	Type: dataset.QuestionFunction,
	ID:   "function_purpose",
	Text: "What is the purpose of {function_name}?",
}

const inputsAggregate = "{\n" +
	"    \"Code Elements\": {\n" +
	"        \"What are the inputs to the function foo\": \"x\"\n" +
	"    }\n" +
	"}"

func TestQueryModel_FoldsAggregateIntoPrompt(t *testing.T) {
	model := &fakeModel{respond: func(string) (string, error) {
		return "It returns\n\n\n  \nits input", nil
	}}
	g := newGenerator(t, Options{
		Model:     model,
		UseLLM:    true,
		Questions: []dataset.Question{inputsQuestion, purposeQuestion},
	})

	records, err := g.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, model.prompts, 1)

	assert.Equal(t,
		"SYS\nQ: What is the purpose of foo?\nC: def foo(x): return x\n"+
			`{"Code Elements":{"What are the inputs to the function foo":"x"}}`,
		model.prompts[0])
	assert.Equal(t, "It returns\n\nits input\n"+inputsAggregate, records[1].Output)
	assert.Equal(t, "```python\ndef foo(x): return x\n```", records[1].Input)
}

func TestQueryModel_DegradesContext(t *testing.T) {
	details := testDetails()
	details.FileInfo.Set(dataset.FieldFileCode, strings.Repeat("x", 500))

	cfg := testConfig()
	cfg.BudgetFraction = 0.5
	cfg.InferenceModel.ModelParams.ContextLength = 400

	model := &fakeModel{respond: func(string) (string, error) { return "summary", nil }}
	g := newGenerator(t, Options{
		Details: details,
		Config:  cfg,
		Model:   model,
		UseLLM:  true,
		Questions: []dataset.Question{{
			Type: dataset.QuestionFile, ID: "file_purpose", Text: "What is the purpose of {filename}?",
		}},
	})

	records, err := g.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "C: ```python\ndef foo(x): ...\n```\n")
	assert.NotContains(t, model.prompts[0], "xxxx")

	require.Len(t, records, 1)
	assert.Contains(t, records[0].Input, strings.Repeat("x", 500))
}

func TestQueryModel_FallsBackToSummary(t *testing.T) {
	details := testDetails()
	details.FileInfo.Set(dataset.FieldFileCode, strings.Repeat("x", 500))
	details.FileInfo.Set(dataset.FieldFileCodeSimplified, strings.Repeat("y", 500))

	cfg := testConfig()
	cfg.BudgetFraction = 0.5
	cfg.InferenceModel.ModelParams.ContextLength = 400

	model := &fakeModel{respond: func(string) (string, error) { return "summary", nil }}
	g := newGenerator(t, Options{
		Details: details, Config: cfg, Model: model, UseLLM: true,
		Questions: []dataset.Question{{Type: dataset.QuestionFile, ID: "file_purpose", Text: "Purpose?"}},
	})

	_, err := g.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "C: ```python\ndependencies: os, functions: foo\n```\n")
}

func TestQueryModel_SummaryMappingRendersAsJSON(t *testing.T) {
	parsed, err := dataset.ParseFileDetails([]byte(`{"file_info": {"file_summary": {
		"dependencies": ["os"],
		"function_defs": [{"foo": {"inputs": ["x"]}}],
		"class_defs": []
	}}}`), false)
	require.NoError(t, err)
	summary, ok := parsed.FileInfo.Get(dataset.FieldFileSummary)
	require.True(t, ok)

	details := testDetails()
	details.FileInfo.Set(dataset.FieldFileCode, strings.Repeat("x", 600))
	details.FileInfo.Set(dataset.FieldFileCodeSimplified, strings.Repeat("y", 600))
	details.FileInfo.Set(dataset.FieldFileSummary, summary)

	cfg := testConfig()
	cfg.BudgetFraction = 0.5
	cfg.InferenceModel.ModelParams.ContextLength = 1000

	model := &fakeModel{respond: func(string) (string, error) { return "summary", nil }}
	g := newGenerator(t, Options{
		Details: details, Config: cfg, Model: model, UseLLM: true,
		Questions: []dataset.Question{{Type: dataset.QuestionFile, ID: "file_purpose", Text: "Purpose?"}},
	})

	_, err = g.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0],
		"C: ```python\n{\"dependencies\":[\"os\"], \"function_defs\":[{\"foo\":{\"inputs\":[\"x\"]}}], \"class_defs\":[]}\n```\n")
	assert.NotContains(t, model.prompts[0], "&{")
	assert.NotContains(t, model.prompts[0], "0x")
}

func TestQueryModel_NothingFits(t *testing.T) {
	cfg := testConfig()
	cfg.InferenceModel.ModelParams.ContextLength = 10

	model := &fakeModel{respond: func(string) (string, error) { return "unreachable", nil }}
	g := newGenerator(t, Options{
		Config: cfg, Model: model, UseLLM: true,
		Questions: []dataset.Question{
			purposeQuestion,
			{Type: dataset.QuestionFile, ID: "file_dependencies", Text: "Deps?"},
		},
	})

	records, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, model.prompts)
	require.Len(t, records, 1)
	assert.Equal(t, "Deps?", records[0].Instruction)
}

func TestQueryModel_DetailedPass(t *testing.T) {
	model := &fakeModel{respond: func(p string) (string, error) {
		if strings.Contains(p, "Describe the purpose and significance") {
			return "detail\n\n\nanswer", nil
		}
		return "overall", nil
	}}
	g := newGenerator(t, Options{
		Model:     model,
		UseLLM:    true,
		Detailed:  true,
		Questions: []dataset.Question{inputsQuestion, purposeQuestion},
	})

	records, err := g.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, model.prompts, 2)

	assert.Contains(t, model.prompts[1],
		"Q: Describe the purpose and significance of these What are the inputs to the function foo: [x] within the code.\n"+
			"C: def foo(x): return x\n{\"Code Elements\"")
	assert.Equal(t, "x\n\nPurpose and Significance:\ndetail\n\nanswer", records[0].Output)
	assert.Equal(t, "overall\n"+inputsAggregate, records[1].Output)
}

func TestQueryModel_DetailedRequiresUseLLM(t *testing.T) {
	model := &fakeModel{}
	g := newGenerator(t, Options{
		Model:     model,
		Detailed:  true,
		Questions: []dataset.Question{inputsQuestion, purposeQuestion},
	})

	records, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, model.prompts)
	assert.Len(t, records, 2)
}
