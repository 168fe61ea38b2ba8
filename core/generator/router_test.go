package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/instructgen/core/dataset"
)

func TestRoutes_CoverEveryQuestionType(t *testing.T) {
	for _, typ := range dataset.QuestionTypes {
		assert.Contains(t, routes, typ)
	}
}

func TestRoute_FileYieldsOneRequest(t *testing.T) {
	g := newGenerator(t, Options{})

	reqs := g.route(dataset.Question{Type: dataset.QuestionFile, ID: "file_dependencies", Text: "Deps of {filename}?"})

	require.Len(t, reqs, 1)
	assert.Equal(t, "Deps of mod.py?", reqs[0].query)
	assert.Equal(t, "import os\n\ndef foo(x): return x", reqs[0].context)
	assert.Same(t, g.details.FileInfo, reqs[0].info)
}

func TestRoute_MethodsInClassOrder(t *testing.T) {
	g := newGenerator(t, Options{})

	reqs := g.route(dataset.Question{
		Type: dataset.QuestionMethod,
		ID:   "method_inputs",
		Text: "Inputs of {method_name} in {class_name}?",
	})

	require.Len(t, reqs, 2)
	assert.Equal(t, "Inputs of A.one in A?", reqs[0].query)
	assert.Equal(t, "Inputs of A.two in A?", reqs[1].query)
	assert.Equal(t, "def one(self): pass", reqs[0].context)
	assert.Equal(t, "def two(self): pass", reqs[1].context)
}

func TestRoute_PurposeQuestionsGetDerivedFields(t *testing.T) {
	g := newGenerator(t, Options{})

	reqs := g.route(dataset.Question{
		Type: dataset.QuestionFunction,
		ID:   "function_variable_purpose",
		Text: "Variables {function_variables} of {function_name}",
	})
	require.Len(t, reqs, 1)
	assert.Equal(t, "Variables y, x of foo", reqs[0].query)

	reqs = g.route(dataset.Question{
		Type: dataset.QuestionClass,
		ID:   "class_purpose",
		Text: "{class_name} has methods {class_methods}",
	})
	require.Len(t, reqs, 1)
	assert.Equal(t, "A has methods one, two", reqs[0].query)
}

func TestRoute_DerivedFieldsOnlyForPurpose(t *testing.T) {
	g := newGenerator(t, Options{})

	reqs := g.route(dataset.Question{
		Type: dataset.QuestionFunction,
		ID:   "function_variables",
		Text: "Variables {function_variables}",
	})
	assert.Empty(t, reqs)
}

func TestRoute_BadRecordDoesNotStopOthers(t *testing.T) {
	details := testDetails()
	details.Functions.Set("broken", dataset.RecordOf("function_inputs", "['a']"))
	details.Functions.Set("bar", dataset.RecordOf("function_code", "def bar(): pass"))
	details.Functions.Set("scalar", "not a record")
	g := newGenerator(t, Options{Details: details})

	reqs := g.route(dataset.Question{Type: dataset.QuestionFunction, ID: "function_inputs", Text: "{function_name}"})

	require.Len(t, reqs, 2)
	assert.Equal(t, "foo", reqs[0].query)
	assert.Equal(t, "bar", reqs[1].query)
}

func TestRoute_UnknownQuestionType(t *testing.T) {
	g := newGenerator(t, Options{})

	assert.Empty(t, g.route(dataset.Question{Type: "module", ID: "x", Text: "x"}))
}

func TestRoute_EscapedBraces(t *testing.T) {
	g := newGenerator(t, Options{})

	reqs := g.route(dataset.Question{Type: dataset.QuestionFile, ID: "file_dependencies", Text: "{{literal}} {filename}"})

	require.Len(t, reqs, 1)
	assert.Equal(t, "{literal} mod.py", reqs[0].query)
}
