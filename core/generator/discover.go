package generator

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/adalundhe/instructgen/core/dataset"
	gerrors "github.com/adalundhe/instructgen/core/errors"
)

// maxDiscoverRetries bounds regeneration when a response has no delimiter.
const maxDiscoverRetries = 1

// fragment is a unit of code instructions are discovered for.
type fragment struct {
	unit string
	code string
}

// fragments returns the whole file followed by every method, each method
// headed by a "# Class.method" comment.
func (g *Generator) fragments() []fragment {
	out := []fragment{{unit: "file", code: g.details.FileInfo.String(dataset.FieldFileCode)}}
	g.details.Methods(func(class, name string, info *dataset.Record) bool {
		header := "# " + class + "." + name
		out = append(out, fragment{
			unit: "method " + class + "." + name,
			code: header + "\n" + info.String(dataset.FieldMethodCode),
		})
		return true
	})
	return out
}

// SplitInstructions splits response at every occurrence of delimiter. Each
// instruction runs from its delimiter to the next one or the end, so the
// pieces concatenate to the response from the first delimiter on. Text
// before the first delimiter is dropped.
func SplitInstructions(response, delimiter string) []string {
	if delimiter == "" {
		return nil
	}
	var starts []int
	for offset := 0; ; {
		i := strings.Index(response[offset:], delimiter)
		if i < 0 {
			break
		}
		starts = append(starts, offset+i)
		offset += i + len(delimiter)
	}

	out := make([]string, 0, len(starts))
	for n, start := range starts {
		end := len(response)
		if n+1 < len(starts) {
			end = starts[n+1]
		}
		out = append(out, response[start:end])
	}
	return out
}

// discoverFragment discovers instructions for frag and answers each one
// against the fragment's code.
func (g *Generator) discoverFragment(ctx context.Context, frag fragment) {
	g.logger.Info("processing fragment", "unit", frag.unit, "preview", preview(frag.code, 80))
	for _, instruction := range g.discover(ctx, frag) {
		if ctx.Err() != nil {
			return
		}
		instruction = strings.TrimSpace(instruction)
		g.records = append(g.records, dataset.InstructRecord{
			Instruction: instruction,
			Output:      g.answerInstruction(ctx, frag, instruction),
		})
	}
}

// discover asks the model for instructions. A response without the
// delimiter is regenerated at most maxDiscoverRetries times.
func (g *Generator) discover(ctx context.Context, frag fragment) []string {
	prompt, err := g.genStage.Fill(frag.code, "")
	if err != nil {
		g.logFailure(frag.unit, withUnit(err, frag.unit))
		return nil
	}
	tokens, err := g.fitter.Check(prompt)
	if err != nil {
		g.logFailure(frag.unit, withUnit(err, frag.unit))
		return nil
	}
	g.logger.Info("context size", "unit", frag.unit, "tokens", tokens)

	delimiter := g.cfg.InstructionDelimiter
	for attempt := 0; attempt <= maxDiscoverRetries; attempt++ {
		if ctx.Err() != nil {
			return nil
		}
		response, err := g.complete(ctx, frag.unit, prompt, attempt > 0)
		if err != nil {
			g.logFailure(frag.unit, err, "attempt", attempt)
		}
		if instructions := SplitInstructions(response, delimiter); len(instructions) > 0 {
			g.logger.Debug("instructions discovered", "unit", frag.unit, "count", len(instructions))
			return instructions
		}
		g.logFailure(frag.unit,
			gerrors.NewGenerationError(gerrors.KindInstructionParse, frag.unit,
				fmt.Errorf("no %q in response", delimiter)),
			"attempt", attempt, "response", response, "prompt", prompt)
	}
	return nil
}

// answerInstruction answers one discovered instruction. The answer is
// recorded even when empty.
func (g *Generator) answerInstruction(ctx context.Context, frag fragment, instruction string) string {
	prompt, err := g.answerStage.Fill(frag.code, instruction)
	if err != nil {
		g.logFailure(frag.unit, withUnit(err, frag.unit), "instruction", instruction)
		return ""
	}
	if _, err := g.fitter.Check(prompt); err != nil {
		g.logFailure(frag.unit, withUnit(err, frag.unit), "instruction", instruction)
		return ""
	}
	response, err := g.complete(ctx, frag.unit, prompt, false)
	if err != nil {
		g.logFailure(frag.unit, err, "instruction", instruction, "prompt", prompt)
		return ""
	}
	return strings.TrimSpace(response)
}

func preview(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + " ..."
}
