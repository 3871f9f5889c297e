package main

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/robert-malhotra/go-lofar-dal/dal"
	"github.com/robert-malhotra/go-lofar-dal/hdf5"
)

// A slab expression is a list of hyperslabs combined left to right:
//
//	start=0,10 count=5,2 stride=2,1 | or start=20,0 count=1,4 block=1,2
//
// The first hyperslab replaces the selection; every later one names its
// operator (or, and, xor, notb, nota, set). Omitted stride and block
// default to ones.

var (
	slabLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Integer", Pattern: `[0-9]+`},
		{Name: "Ident", Pattern: `[a-zA-Z]+`},
		{Name: "Pipe", Pattern: `\|`},
		{Name: "Equals", Pattern: `=`},
		{Name: "Comma", Pattern: `,`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	slabParser = participle.MustBuild[slabExpr](
		participle.Lexer(slabLexer),
		participle.Elide("Whitespace"),
	)
)

type slabExpr struct {
	First *slabTerm   `parser:"@@"`
	Rest  []*slabStep `parser:"( Pipe @@ )*"`
}

type slabStep struct {
	Op   string    `parser:"@Ident"`
	Term *slabTerm `parser:"@@"`
}

type slabTerm struct {
	Fields []*slabField `parser:"@@+"`
}

type slabField struct {
	Key    string   `parser:"@Ident Equals"`
	Values []uint64 `parser:"@Integer ( Comma @Integer )*"`
}

// slabStage is one hyperslab of a parsed expression with the operator
// that folds it into the selection.
type slabStage struct {
	Op   dal.SelectOp
	Slab dal.Hyperslab
}

// parseSlab parses a slab expression for an array of the given rank.
func parseSlab(expr string, rank int) ([]slabStage, error) {
	ast, err := slabParser.ParseString("", expr)
	if err != nil {
		return nil, fmt.Errorf("slab %q: %w", expr, err)
	}
	first, err := ast.First.hyperslab(rank)
	if err != nil {
		return nil, err
	}
	stages := []slabStage{{Op: dal.SelectSet, Slab: first}}
	for _, step := range ast.Rest {
		op, err := hdf5.ParseSelectOp(step.Op)
		if err != nil {
			return nil, fmt.Errorf("slab %q: %w", expr, err)
		}
		h, err := step.Term.hyperslab(rank)
		if err != nil {
			return nil, err
		}
		stages = append(stages, slabStage{Op: op, Slab: h})
	}
	return stages, nil
}

func (t *slabTerm) hyperslab(rank int) (dal.Hyperslab, error) {
	var h dal.Hyperslab
	for _, f := range t.Fields {
		var dst *[]uint64
		switch f.Key {
		case "start":
			dst = &h.Start
		case "count":
			dst = &h.Count
		case "stride":
			dst = &h.Stride
		case "block":
			dst = &h.Block
		default:
			return h, fmt.Errorf("slab: unknown key %q", f.Key)
		}
		if *dst != nil {
			return h, fmt.Errorf("slab: %s given twice", f.Key)
		}
		if len(f.Values) != rank {
			return h, fmt.Errorf("slab: %s has %d values, array rank is %d", f.Key, len(f.Values), rank)
		}
		*dst = f.Values
	}
	if h.Start == nil || h.Count == nil {
		return h, fmt.Errorf("slab: start and count are required")
	}
	return h, nil
}
