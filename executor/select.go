package executor

import (
	"sort"
	"strconv"

	"github.com/juju/errors"

	"github.com/nrgarcia/machdb/ast"
	"github.com/nrgarcia/machdb/catalog"
	"github.com/nrgarcia/machdb/dberr"
	"github.com/nrgarcia/machdb/planner"
	"github.com/nrgarcia/machdb/table"
	"github.com/nrgarcia/machdb/token"
)

// execPlan interprets a SELECT plan tree bottom-up, each node
// consuming its Input's rows and producing its own, exactly as spec
// §4.10 describes per operator.
func (e *Env) execPlan(p planner.Plan) ([]map[string]any, error) {
	switch pl := p.(type) {
	case planner.SeqScanPlan:
		return e.execSeqScan(pl)
	case planner.FilterPlan:
		rows, err := e.execPlan(pl.Input)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			ok, err := evalCond(pl.Cond, row)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, row)
			}
		}
		return out, nil
	case planner.GroupByPlan:
		rows, err := e.execPlan(pl.Input)
		if err != nil {
			return nil, err
		}
		return groupRows(rows, pl.Keys, pl.Items)
	case planner.OrderByPlan:
		rows, err := e.execPlan(pl.Input)
		if err != nil {
			return nil, err
		}
		return orderRows(rows, pl.Keys), nil
	case planner.LimitPlan:
		rows, err := e.execPlan(pl.Input)
		if err != nil {
			return nil, err
		}
		if pl.Count < len(rows) {
			rows = rows[:pl.Count]
		}
		return rows, nil
	case planner.ProjectPlan:
		rows, err := e.execPlan(pl.Input)
		if err != nil {
			return nil, err
		}
		return projectRows(rows, pl.Items, containsGroupBy(pl.Input)), nil
	default:
		return nil, dberr.New(dberr.ExecutionError, "plan node %T cannot be executed as a row source", p)
	}
}

func (e *Env) execSeqScan(pl planner.SeqScanPlan) ([]map[string]any, error) {
	switch pl.TableName {
	case catalog.TableName:
		rows, err := e.Catalog.ScanTables(table.Condition{})
		if err != nil {
			return nil, errors.Annotatef(err, "SELECT FROM %q", pl.TableName)
		}
		return toMaps(rows), nil
	case catalog.IndexesTableName:
		rows, err := e.Catalog.ScanIndexes(table.Condition{})
		if err != nil {
			return nil, errors.Annotatef(err, "SELECT FROM %q", pl.TableName)
		}
		return toMaps(rows), nil
	default:
		st, err := e.openTable(pl.TableName)
		if err != nil {
			return nil, errors.Annotatef(err, "SELECT FROM %q", pl.TableName)
		}
		rows, err := st.Scan(table.Condition{})
		if err != nil {
			return nil, errors.Annotatef(err, "SELECT FROM %q", pl.TableName)
		}
		return toMaps(rows), nil
	}
}

func toMaps(rows []table.Row) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = r.Values
	}
	return out
}

// containsGroupBy reports whether p's Input chain (Filter/OrderBy/
// Limit all carry a single Input field) passes through a GroupByPlan.
// Project consults this to decide whether its Items are already
// reduced per-group scalars (pass through by OutputName) or need to
// be computed fresh, either as a per-row projection or as a whole-
// input aggregate reduction (the "Aggregate, no GROUP BY" case).
func containsGroupBy(p planner.Plan) bool {
	for {
		switch pl := p.(type) {
		case planner.GroupByPlan:
			return true
		case planner.FilterPlan:
			p = pl.Input
		case planner.OrderByPlan:
			p = pl.Input
		case planner.LimitPlan:
			p = pl.Input
		default:
			return false
		}
	}
}

// evalCond recursively evaluates the WHERE AST: AND/OR combine two
// sub-conditions; a comparison leaf resolves its two operands
// (ColumnRef or Literal) against row and compares with the same
// string<->int coercion rule as table.Condition.
func evalCond(n *ast.Node, row map[string]any) (bool, error) {
	if n == nil {
		return true, nil
	}
	if n.Kind != ast.Cond {
		return false, dberr.New(dberr.ExecutionError, "WHERE: unexpected node kind %s", n.Kind)
	}
	switch n.Value {
	case "AND":
		l, err := evalCond(n.Children[0], row)
		if err != nil || !l {
			return false, err
		}
		return evalCond(n.Children[1], row)
	case "OR":
		l, err := evalCond(n.Children[0], row)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return evalCond(n.Children[1], row)
	default:
		left := resolveOperand(n.Children[0], row)
		right := resolveOperand(n.Children[1], row)
		return compareAny(left, n.Value, right), nil
	}
}

func resolveOperand(n *ast.Node, row map[string]any) any {
	if n.Kind == ast.ColumnRef {
		return row[n.Value]
	}
	if n.Kind == ast.Literal && n.Tok == token.NUMBER {
		if i, err := strconv.ParseInt(n.Value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return n.Value
}

// compareAny mirrors table.Condition's digit-parse string<->int
// coercion, shared here so WHERE's recursive evaluator
// and the mutation path's flattened single predicate agree on
// semantics.
func compareAny(left any, op string, right any) bool {
	li, lok := coerceInt(left)
	ri, rok := coerceInt(right)
	if lok && rok {
		return compareOrdered(int(li), op, int(ri))
	}
	ls, lok := coerceString(left)
	rs, rok := coerceString(right)
	if lok && rok {
		return compareStrings(ls, op, rs)
	}
	return false
}

func coerceInt(v any) (int32, bool) {
	switch t := v.(type) {
	case int32:
		return t, true
	case string:
		n, err := strconv.ParseInt(t, 10, 32)
		if err != nil {
			return 0, false
		}
		return int32(n), true
	default:
		return 0, false
	}
}

func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	default:
		return "", false
	}
}

func compareOrdered(l int, op string, r int) bool {
	switch op {
	case "=":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	default:
		return false
	}
}

func compareStrings(l string, op string, r string) bool {
	switch op {
	case "=":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	default:
		return false
	}
}

// groupRows partitions rows by the tuple of Keys, preserving the
// order groups were first encountered (a stable, deterministic
// substitute for the documented "any stable order keyed by
// group"). One output row per group: key columns keep their own
// names, aggregate items are keyed by SelectItem.OutputName.
func groupRows(rows []map[string]any, keys []string, items []planner.SelectItem) ([]map[string]any, error) {
	type group struct {
		keyVals map[string]any
		members []map[string]any
	}
	var order []string
	byKey := make(map[string]*group)

	for _, row := range rows {
		gk := groupKey(row, keys)
		g, ok := byKey[gk]
		if !ok {
			kv := make(map[string]any, len(keys))
			for _, k := range keys {
				kv[k] = row[k]
			}
			g = &group{keyVals: kv}
			byKey[gk] = g
			order = append(order, gk)
		}
		g.members = append(g.members, row)
	}

	out := make([]map[string]any, 0, len(order))
	for _, gk := range order {
		g := byKey[gk]
		result := make(map[string]any, len(items))
		for _, item := range items {
			switch item.Kind {
			case planner.ItemAgg:
				v, err := computeAggregate(item, g.members)
				if err != nil {
					return nil, err
				}
				result[item.OutputName()] = v
			case planner.ItemColumn:
				result[item.OutputName()] = g.keyVals[item.Column]
			case planner.ItemStar:
				for k, v := range g.members[0] {
					result[k] = v
				}
			}
		}
		out = append(out, result)
	}
	return out, nil
}

func groupKey(row map[string]any, keys []string) string {
	k := ""
	for _, key := range keys {
		s, _ := coerceString(row[key])
		k += key + "=" + s + "\x00"
	}
	return k
}

// computeAggregate reduces members to one scalar:
// COUNT(*) counts rows, COUNT(col) counts non-null values; SUM/AVG/
// MIN/MAX operate over non-null, digit-coercible values, with the
// empty-set defaults of 0 for all four. AVG is integer division,
// matching the engine's INT-only data model (no floating-point type
// exists to hold a fractional average).
func computeAggregate(item planner.SelectItem, members []map[string]any) (any, error) {
	if item.Agg == "COUNT" && item.Column == "" {
		return int32(len(members)), nil
	}

	var values []int32
	nonNull := 0
	for _, row := range members {
		v, ok := row[item.Column]
		if !ok || v == nil {
			continue
		}
		nonNull++
		if n, ok := coerceInt(v); ok {
			values = append(values, n)
		}
	}

	switch item.Agg {
	case "COUNT":
		return int32(nonNull), nil
	case "SUM":
		var sum int32
		for _, v := range values {
			sum += v
		}
		return sum, nil
	case "AVG":
		if len(values) == 0 {
			return int32(0), nil
		}
		var sum int32
		for _, v := range values {
			sum += v
		}
		return sum / int32(len(values)), nil
	case "MIN":
		if len(values) == 0 {
			return int32(0), nil
		}
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return m, nil
	case "MAX":
		if len(values) == 0 {
			return int32(0), nil
		}
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return m, nil
	default:
		return nil, dberr.New(dberr.ExecutionError, "unknown aggregate function %q", item.Agg)
	}
}

// orderRows stably sorts by the (column, direction) key list, with
// keys compared via the same digit-parse numeric coercion as WHERE;
// DESC negates the comparison.
func orderRows(rows []map[string]any, keys []planner.OrderKey) []map[string]any {
	out := make([]map[string]any, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		for _, k := range keys {
			cmp := compareValues(out[i][k.Column], out[j][k.Column])
			if k.Desc {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
	return out
}

func compareValues(a, b any) int {
	ai, aok := coerceInt(a)
	bi, bok := coerceInt(b)
	if aok && bok {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	as, _ := coerceString(a)
	bs, _ := coerceString(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

// projectRows narrows each row to Items. grouped is true when Input's
// chain already passed through GroupByPlan, meaning rows already carry
// exactly the projected columns keyed by OutputName, so Project only
// needs to pass them through (a no-op beyond key selection, since
// GroupBy computed Items itself). Otherwise, if Items contains an
// aggregate the whole row set reduces to a single row (the ungrouped
// aggregate case); plain column projections apply per-row.
func projectRows(rows []map[string]any, items []planner.SelectItem, grouped bool) []map[string]any {
	if grouped {
		out := make([]map[string]any, len(rows))
		for i, row := range rows {
			out[i] = projectOne(row, items, true)
		}
		return out
	}

	if planner.HasAggregates(items) {
		result := make(map[string]any, len(items))
		for _, item := range items {
			if item.Kind == planner.ItemAgg {
				v, _ := computeAggregate(item, rows)
				result[item.OutputName()] = v
				continue
			}
			// A plain column alongside an aggregate with no GROUP BY
			// has no single well-defined source row; take the first,
			// matching the reduction's "one row overall" semantics.
			if len(rows) > 0 {
				result[item.OutputName()] = rows[0][item.Column]
			} else {
				result[item.OutputName()] = nil
			}
		}
		return []map[string]any{result}
	}

	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = projectOne(row, items, false)
	}
	return out
}

func projectOne(row map[string]any, items []planner.SelectItem, grouped bool) map[string]any {
	result := make(map[string]any, len(items))
	for _, item := range items {
		switch item.Kind {
		case planner.ItemStar:
			for k, v := range row {
				result[k] = v
			}
		case planner.ItemAgg:
			if grouped {
				result[item.OutputName()] = row[item.OutputName()]
			}
		default:
			if grouped {
				// GroupByPlan already keyed its key-column output by
				// OutputName, not the raw column name (an alias makes
				// these differ), so Project's pass-through must look
				// the value up the same way.
				result[item.OutputName()] = row[item.OutputName()]
			} else {
				result[item.OutputName()] = row[item.Column]
			}
		}
	}
	return result
}
