package generator

import (
	"fmt"
	"strings"

	"github.com/adalundhe/instructgen/core/dataset"
	gerrors "github.com/adalundhe/instructgen/core/errors"
	"github.com/adalundhe/instructgen/core/prompt"
	"github.com/adalundhe/instructgen/core/textnorm"
)

// purposeSuffix marks questions answered by the model and given derived
// template fields.
const purposeSuffix = "purpose"

// request is one question applied to one record.
type request struct {
	question dataset.Question
	unit     string
	query    string
	context  string
	info     *dataset.Record
}

type routeFunc func(g *Generator, q dataset.Question) []request

// routes has one handler per question type.
var routes = map[dataset.QuestionType]routeFunc{
	dataset.QuestionFile:     (*Generator).routeFile,
	dataset.QuestionFunction: entityRoute(dataset.QuestionFunction, func(d *dataset.FileDetails) *dataset.Record { return d.Functions }),
	dataset.QuestionClass:    entityRoute(dataset.QuestionClass, func(d *dataset.FileDetails) *dataset.Record { return d.Classes }),
	dataset.QuestionMethod:   (*Generator).routeMethods,
}

// route expands q into requests. Records that cannot be templated are
// logged and left out.
func (g *Generator) route(q dataset.Question) []request {
	fn, ok := routes[q.Type]
	if !ok {
		g.logFailure(q.ID, gerrors.NewGenerationError(gerrors.KindSchema, q.ID,
			fmt.Errorf("unknown question type %q", q.Type)))
		return nil
	}
	return fn(g, q)
}

func (g *Generator) routeFile(q dataset.Question) []request {
	unit := "file " + q.ID
	info := g.details.FileInfo
	code, err := requireField(info, unit, dataset.FieldFileCode)
	if err != nil {
		g.logFailure(unit, err)
		return nil
	}
	query, err := g.query(q, unit, nil)
	if err != nil {
		g.logFailure(unit, err)
		return nil
	}
	return []request{{question: q, unit: unit, query: query, context: code, info: info}}
}

// entityRoute handles function and class questions: one request per record
// in the collection, keyed by <type>_name.
func entityRoute(typ dataset.QuestionType, collection func(*dataset.FileDetails) *dataset.Record) routeFunc {
	prefix := string(typ)
	return func(g *Generator, q dataset.Question) []request {
		var out []request
		collection(g.details).Range(func(name string, v any) bool {
			unit := fmt.Sprintf("%s %s %s", prefix, name, q.ID)
			info, _ := v.(*dataset.Record)
			code, err := requireField(info, unit, prefix+"_code")
			if err != nil {
				g.logFailure(unit, err)
				return true
			}

			fields := prompt.Fields{prefix + "_name": name}
			if strings.HasSuffix(q.ID, purposeSuffix) {
				addDerivedFields(fields, typ, info)
			}
			query, err := g.query(q, unit, fields)
			if err != nil {
				g.logFailure(unit, err)
				return true
			}
			out = append(out, request{question: q, unit: unit, query: query, context: code, info: info})
			return true
		})
		return out
	}
}

// addDerivedFields supplies <type>_variables from the record's variables and
// inputs, and class_methods for classes.
func addDerivedFields(fields prompt.Fields, typ dataset.QuestionType, info *dataset.Record) {
	prefix := string(typ)
	variables, _ := info.Get(prefix + "_variables")
	inputs, _ := info.Get(prefix + "_inputs")
	fields[prefix+"_variables"] = textnorm.Join(textnorm.InfoString(variables), textnorm.InfoString(inputs))

	if typ == dataset.QuestionClass {
		methods, _ := info.Get("class_methods")
		fields["class_methods"] = textnorm.Normalize(textnorm.InfoString(methods))
	}
}

func (g *Generator) routeMethods(q dataset.Question) []request {
	var out []request
	g.details.Methods(func(class, name string, info *dataset.Record) bool {
		methodName := class + "." + name
		unit := fmt.Sprintf("method %s %s", methodName, q.ID)
		code, err := requireField(info, unit, dataset.FieldMethodCode)
		if err != nil {
			g.logFailure(unit, err)
			return true
		}
		query, err := g.query(q, unit, prompt.Fields{
			"class_name":  class,
			"method_name": methodName,
		})
		if err != nil {
			g.logFailure(unit, err)
			return true
		}
		out = append(out, request{question: q, unit: unit, query: query, context: code, info: info})
		return true
	})
	return out
}

func (g *Generator) query(q dataset.Question, unit string, fields prompt.Fields) (string, error) {
	all := prompt.Fields{"filename": g.baseName}
	for k, v := range fields {
		all[k] = v
	}
	query, err := prompt.Format(q.Text, all)
	if err != nil {
		return "", withUnit(err, unit)
	}
	return query, nil
}

func requireField(info *dataset.Record, unit, field string) (string, error) {
	if info == nil {
		return "", gerrors.NewGenerationError(gerrors.KindSchema, unit, fmt.Errorf("record is not a mapping"))
	}
	if !info.Has(field) {
		return "", gerrors.NewGenerationError(gerrors.KindSchema, unit, fmt.Errorf("missing field %s", field))
	}
	return info.String(field), nil
}
