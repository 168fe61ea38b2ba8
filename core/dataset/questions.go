package dataset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// QuestionsFile is the default questions file name.
const QuestionsFile = "instructgen_questions.json"

// QuestionType is the scope a question applies to.
type QuestionType string

const (
	QuestionFile     QuestionType = "file"
	QuestionFunction QuestionType = "function"
	QuestionClass    QuestionType = "class"
	QuestionMethod   QuestionType = "method"
)

// QuestionTypes lists every valid question type.
var QuestionTypes = []QuestionType{QuestionFile, QuestionFunction, QuestionClass, QuestionMethod}

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	for _, known := range QuestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Question is a templated question. Text contains {name} placeholders filled
// per target record.
type Question struct {
	ID   string       `json:"id" yaml:"id"`
	Text string       `json:"text" yaml:"text"`
	Type QuestionType `json:"type" yaml:"type"`
}

// ValidateQuestions rejects questions with unknown types or missing fields.
func ValidateQuestions(questions []Question) error {
	var problems []string
	for i, q := range questions {
		if q.ID == "" {
			problems = append(problems, fmt.Sprintf("question %d: missing id", i))
		}
		if q.Text == "" {
			problems = append(problems, fmt.Sprintf("question %d (%s): missing text", i, q.ID))
		}
		if !q.Type.Valid() {
			problems = append(problems, fmt.Sprintf("question %d (%s): unknown type %q", i, q.ID, q.Type))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid questions: %s", strings.Join(problems, "; "))
	}
	return nil
}

// LoadQuestions reads a JSON or YAML questions file.
func LoadQuestions(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var questions []Question
	if isYAML(path) {
		err = yaml.Unmarshal(data, &questions)
	} else {
		err = json.Unmarshal(data, &questions)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := ValidateQuestions(questions); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return questions, nil
}

// ResolveQuestions loads questions from path, or from QuestionsFile in the
// working directory when path is empty. A missing or invalid file falls back
// to DefaultQuestions.
func ResolveQuestions(path string, logger *slog.Logger) []Question {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = QuestionsFile
	}
	if _, err := os.Stat(path); err != nil {
		logger.Info("questions file not found, using default questions", "path", path)
		return DefaultQuestions()
	}
	questions, err := LoadQuestions(path)
	if err != nil {
		logger.Warn("questions file not valid, using default questions", "path", path, "error", err)
		return DefaultQuestions()
	}
	logger.Info("using questions from file", "path", path, "count", len(questions))
	return questions
}

// WriteQuestions writes questions as 4-space indented JSON to dir/QuestionsFile.
func WriteQuestions(dir string, questions []Question) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(questions, "", "    ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, QuestionsFile)
	return path, os.WriteFile(path, append(data, '\n'), 0o644)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// DefaultQuestions returns the built-in question set.
func DefaultQuestions() []Question {
	return []Question{
		{ID: "file_dependencies", Type: QuestionFile,
			Text: "What are the dependencies of the Python file: '{filename}'?"},
		{ID: "internal_code_graph", Type: QuestionFile,
			Text: "What are the structural relationships between the functions and classes defined in the Python file: '{filename}'?"},
		{ID: "entire_code_graph", Type: QuestionFile,
			Text: "What are the structural relationships between the functions and classes defined and used in the Python file: '{filename}'?"},
		{ID: "file_functions", Type: QuestionFile,
			Text: "What functions are defined in the Python file: '{filename}'?"},
		{ID: "file_classes", Type: QuestionFile,
			Text: "What classes are defined in the Python file: '{filename}'?"},
		{ID: "file_control_flow", Type: QuestionFile,
			Text: "What is the control flow of the Python file: '{filename}'?"},
		{ID: "function_inputs", Type: QuestionFunction,
			Text: "What are the inputs to the function: '{function_name}' in the Python file: '{filename}'?"},
		{ID: "function_docstring", Type: QuestionFunction,
			Text: "What is the docstring of the function: '{function_name}' in the Python file: '{filename}'?"},
		{ID: "function_calls", Type: QuestionFunction,
			Text: "What calls are made in the function: '{function_name}' in the Python file: '{filename}'?"},
		{ID: "function_variables", Type: QuestionFunction,
			Text: "What variables are defined in the function: '{function_name}' in the Python file: '{filename}'?"},
		{ID: "function_returns", Type: QuestionFunction,
			Text: "What are the returned items from the function: '{function_name}' in the Python file: '{filename}'?"},
		{ID: "class_methods", Type: QuestionClass,
			Text: "What are the methods defined within the class: '{class_name}' in the Python file: '{filename}'?"},
		{ID: "class_docstring", Type: QuestionClass,
			Text: "What is the docstring of the class: '{class_name}' in the Python file: '{filename}'?"},
		{ID: "class_attributes", Type: QuestionClass,
			Text: "What are the attributes of the class: '{class_name}' in the Python file: '{filename}'?"},
		{ID: "class_variables", Type: QuestionClass,
			Text: "What variables are defined in the class: '{class_name}' in the Python file: '{filename}'?"},
		{ID: "class_inheritance", Type: QuestionClass,
			Text: "What is the Inheritance of the class: '{class_name}' in the Python file: '{filename}'?"},
		{ID: "method_inputs", Type: QuestionMethod,
			Text: "What are the inputs to method: '{method_name}' in the class: '{class_name}' in the Python file: '{filename}'?"},
		{ID: "method_docstring", Type: QuestionMethod,
			Text: "What is the docstring of the method: '{method_name}' in the class: '{class_name}' in the Python file: '{filename}'?"},
		{ID: "method_calls", Type: QuestionMethod,
			Text: "What calls are made in the method: '{method_name}' in the class: '{class_name}' in the Python file: '{filename}'?"},
		{ID: "method_returns", Type: QuestionMethod,
			Text: "What are the returns from the method: '{method_name}' in the class: '{class_name}' in the Python file: '{filename}'?"},
		{ID: "file_purpose", Type: QuestionFile,
			Text: "What is the purpose and processing summary of the Python file: '{filename}'?"},
		{ID: "function_purpose", Type: QuestionFunction,
			Text: "What is the purpose and processing summary of the function: '{function_name}' defined in the Python file: '{filename}'?"},
		{ID: "class_purpose", Type: QuestionClass,
			Text: "What is the purpose and processing summary of the class: '{class_name}' defined in the Python file: '{filename}'?"},
		{ID: "method_purpose", Type: QuestionMethod,
			Text: "What is the purpose and processing summary of the method: '{method_name}' defined in the class: '{class_name}' in the Python file: '{filename}'?"},
		{ID: "function_variable_purpose", Type: QuestionFunction,
			Text: "What is the purpose and usage of each of these variables: '{function_variables}' defined in the function: '{function_name}' in the Python file: '{filename}'?"},
		{ID: "class_variable_purpose", Type: QuestionClass,
			Text: "What is the purpose and usage of each of these variables: '{class_variables}' defined in the class: '{class_name}' in the Python file: '{filename}'?"},
	}
}
