// Package dataset holds the data model shared by generation and output:
// file details produced by static analysis, question templates, and the
// instruction records that make up a dataset.
package dataset

import "strings"

// Field names read from file details.
const (
	FieldFileCode           = "file_code"
	FieldFileCodeSimplified = "file_code_simplified"
	FieldFileSummary        = "file_summary"
	FieldMethodCode         = "method_code"

	// MethodPrefix marks class members that are methods.
	MethodPrefix = "class_method_"
)

// FileDetails are the structural facts extracted from one source file.
type FileDetails struct {
	FileInfo  *Record `json:"file_info" yaml:"file_info"`
	Functions *Record `json:"functions" yaml:"functions"`
	Classes   *Record `json:"classes" yaml:"classes"`
}

// Methods visits every method of every class in order. name is the method
// name without the class prefix.
func (d *FileDetails) Methods(fn func(class, name string, info *Record) bool) {
	if d == nil {
		return
	}
	d.Classes.Range(func(class string, v any) bool {
		info, _ := v.(*Record)
		cont := true
		info.Range(func(key string, mv any) bool {
			if !strings.HasPrefix(key, MethodPrefix) {
				return true
			}
			method, _ := mv.(*Record)
			cont = fn(class, strings.TrimPrefix(key, MethodPrefix), method)
			return cont
		})
		return cont
	})
}

// InstructRecord is one instruction/input/output triple of a dataset.
type InstructRecord struct {
	Instruction string `json:"instruction" yaml:"instruction"`
	Input       string `json:"input" yaml:"input"`
	Output      string `json:"output" yaml:"output"`
}
