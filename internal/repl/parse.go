package repl

import (
	"fmt"
	"strings"

	"github.com/siftdata/sift/internal/frame"
	"github.com/siftdata/sift/internal/loader"
	"github.com/siftdata/sift/internal/op"
)

// parseOperation turns a tokenized operation command into operation params.
// The first token is the command word. Join commands load their right-hand
// dataset from disk as part of parsing.
func parseOperation(tokens []string) (op.Params, error) {
	switch tokens[0] {
	case "filter":
		return parseFilter(tokens[1:])
	case "search":
		return parseSearch(tokens[1:])
	case "agg":
		return parseAggregate(tokens[1:])
	case "pivot":
		return parsePivot(tokens[1:])
	case "join":
		return parseJoin(tokens[1:])
	case "sort":
		return parseSort(tokens[1:])
	case "col":
		return parseColumnEdit(tokens[1:])
	default:
		return nil, fmt.Errorf("unknown operation %q", tokens[0])
	}
}

func parseFilter(args []string) (op.Params, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: filter <column> <op> <value> | filter expr <expression>")
	}
	if args[0] == "expr" {
		if len(args) < 2 {
			return nil, fmt.Errorf("filter expr requires an expression")
		}
		return op.FilterParams{Expr: strings.Join(args[1:], " ")}, nil
	}
	if len(args) != 3 {
		return nil, fmt.Errorf("usage: filter <column> <op> <value>")
	}
	return op.FilterParams{Column: args[0], Op: frame.CompareOp(args[1]), Value: args[2]}, nil
}

func parseSearch(args []string) (op.Params, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: search <query>")
	}
	return op.SearchParams{Query: strings.Join(args, " ")}, nil
}

// parseAggregate parses "agg sum(Fare),mean(Age) by City,Year".
func parseAggregate(args []string) (op.Params, error) {
	if len(args) != 3 || args[1] != "by" {
		return nil, fmt.Errorf("usage: agg <func(column)[,...]> by <column[,...]>")
	}
	var aggs []frame.Aggregation
	for _, spec := range strings.Split(args[0], ",") {
		open := strings.Index(spec, "(")
		if open <= 0 || !strings.HasSuffix(spec, ")") {
			return nil, fmt.Errorf("bad aggregation %q, want func(column)", spec)
		}
		aggs = append(aggs, frame.Aggregation{
			Func:   frame.AggFunc(spec[:open]),
			Column: spec[open+1 : len(spec)-1],
		})
	}
	return op.AggregateParams{GroupBy: strings.Split(args[2], ","), Aggs: aggs}, nil
}

func parsePivot(args []string) (op.Params, error) {
	if len(args) != 4 {
		return nil, fmt.Errorf("usage: pivot <index> <column> <value> <func>")
	}
	return op.PivotParams{
		Index:  args[0],
		Column: args[1],
		Value:  args[2],
		Func:   frame.AggFunc(args[3]),
	}, nil
}

func parseJoin(args []string) (op.Params, error) {
	if len(args) != 3 && len(args) != 4 {
		return nil, fmt.Errorf("usage: join <path> <left-key> <right-key> [inner|left]")
	}
	how := frame.JoinInner
	if len(args) == 4 {
		how = frame.JoinHow(args[3])
	}
	right, err := loader.Load(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to load join dataset: %w", err)
	}
	return op.JoinParams{
		Path:     args[0],
		LeftKey:  args[1],
		RightKey: args[2],
		How:      how,
		Right:    right,
	}, nil
}

// parseSort parses "sort Fare:desc,Age".
func parseSort(args []string) (op.Params, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("usage: sort <column[:desc][,...]>")
	}
	var keys []frame.SortKey
	for _, spec := range strings.Split(args[0], ",") {
		col, dir, found := strings.Cut(spec, ":")
		key := frame.SortKey{Column: col}
		if found {
			switch dir {
			case "desc":
				key.Desc = true
			case "asc":
			default:
				return nil, fmt.Errorf("bad sort direction %q, want asc or desc", dir)
			}
		}
		keys = append(keys, key)
	}
	return op.SortParams{Keys: keys}, nil
}

func parseColumnEdit(args []string) (op.Params, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: col rename|drop|cast|derive ...")
	}
	switch args[0] {
	case "rename":
		if len(args) != 3 {
			return nil, fmt.Errorf("usage: col rename <column> <new-name>")
		}
		return op.ColumnEditParams{Action: op.EditRename, Column: args[1], To: args[2]}, nil
	case "drop":
		if len(args) != 2 {
			return nil, fmt.Errorf("usage: col drop <column>")
		}
		return op.ColumnEditParams{Action: op.EditDrop, Column: args[1]}, nil
	case "cast":
		if len(args) != 3 {
			return nil, fmt.Errorf("usage: col cast <column> <numeric|text|date|boolean>")
		}
		return op.ColumnEditParams{Action: op.EditCast, Column: args[1], To: args[2]}, nil
	case "derive":
		if len(args) < 4 || args[2] != "=" {
			return nil, fmt.Errorf("usage: col derive <name> = <expression>")
		}
		return op.ColumnEditParams{Action: op.EditDerive, Column: args[1], Expr: strings.Join(args[3:], " ")}, nil
	default:
		return nil, fmt.Errorf("unknown col action %q", args[0])
	}
}
