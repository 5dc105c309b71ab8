package planner

import (
	"strconv"

	"github.com/nrgarcia/machdb/ast"
	"github.com/nrgarcia/machdb/record"
	"github.com/nrgarcia/machdb/table"
	"github.com/nrgarcia/machdb/token"
)

// Lower turns one parsed statement into its plan tree.
func Lower(stmt *ast.Node) (Plan, error) {
	switch stmt.Kind {
	case ast.CreateTable:
		return lowerCreateTable(stmt)
	case ast.CreateIndex:
		return lowerCreateIndex(stmt)
	case ast.DropIndex:
		return DropIndexPlan{IndexName: stmt.Value}, nil
	case ast.Insert:
		return lowerInsert(stmt)
	case ast.Update:
		return lowerUpdate(stmt)
	case ast.Delete:
		return lowerDelete(stmt)
	case ast.Select:
		return lowerSelect(stmt)
	default:
		return nil, wrapError("cannot lower statement of kind %s", stmt.Kind)
	}
}

func lowerCreateTable(stmt *ast.Node) (Plan, error) {
	tableName := stmt.Child(ast.TableName)
	if tableName == nil {
		return nil, wrapError("CREATE TABLE missing table name")
	}
	var cols []record.ColumnInfo
	for _, child := range stmt.Children {
		if child.Kind != ast.ColumnDef {
			continue
		}
		dt := record.IntType
		if len(child.Children) > 0 && child.Children[0].Kind == ast.Varchar {
			dt = record.VarcharType
		}
		cols = append(cols, record.ColumnInfo{Name: child.Value, Type: dt, Nullable: true})
	}
	return CreateTablePlan{TableName: tableName.Value, Columns: cols}, nil
}

func lowerCreateIndex(stmt *ast.Node) (Plan, error) {
	if len(stmt.Children) < 3 {
		return nil, wrapError("CREATE INDEX missing name, table, or column")
	}
	return CreateIndexPlan{
		IndexName:  stmt.Children[0].Value,
		TableName:  stmt.Children[1].Value,
		ColumnName: stmt.Children[2].Value,
		Unique:     stmt.Value == "UNIQUE",
	}, nil
}

func lowerInsert(stmt *ast.Node) (Plan, error) {
	tableName := stmt.Child(ast.TableName)
	if tableName == nil {
		return nil, wrapError("INSERT missing table name")
	}
	plan := InsertPlan{TableName: tableName.Value}
	if cols := stmt.Child(ast.ColumnList); cols != nil {
		for _, c := range cols.Children {
			plan.Columns = append(plan.Columns, c.Value)
		}
	}
	values := stmt.Child(ast.ValueList)
	if values == nil {
		return nil, wrapError("INSERT missing VALUES list")
	}
	for _, v := range values.Children {
		plan.Values = append(plan.Values, lowerLiteral(v))
	}
	return plan, nil
}

func lowerLiteral(n *ast.Node) Literal {
	return Literal{Text: n.Value, IsString: n.Tok == token.STRING}
}

func lowerUpdate(stmt *ast.Node) (Plan, error) {
	tableName := stmt.Child(ast.TableName)
	if tableName == nil {
		return nil, wrapError("UPDATE missing table name")
	}
	plan := UpdatePlan{TableName: tableName.Value}
	assigns := stmt.Child(ast.AssignList)
	if assigns == nil {
		return nil, wrapError("UPDATE missing SET clause")
	}
	for _, a := range assigns.Children {
		if len(a.Children) == 0 {
			continue
		}
		plan.Assignments = append(plan.Assignments, Assignment{
			Column: a.Value,
			Value:  lowerLiteral(a.Children[0]),
		})
	}
	if where := stmt.Child(ast.Where); where != nil && len(where.Children) > 0 {
		plan.Cond = flattenCond(where.Children[0])
	}
	return plan, nil
}

func lowerDelete(stmt *ast.Node) (Plan, error) {
	tableName := stmt.Child(ast.TableName)
	if tableName == nil {
		return nil, wrapError("DELETE missing table name")
	}
	plan := DeletePlan{TableName: tableName.Value}
	if where := stmt.Child(ast.Where); where != nil && len(where.Children) > 0 {
		plan.Cond = flattenCond(where.Children[0])
	}
	return plan, nil
}

// flattenCond degrades a composite WHERE tree to its first comparison,
// matching the reference table store's single-predicate mutation path
// (see the project's open design notes on the condition expression
// model). A bare comparison node lowers directly.
func flattenCond(n *ast.Node) table.Condition {
	if n == nil {
		return table.Condition{}
	}
	if n.Value == "AND" || n.Value == "OR" {
		if len(n.Children) > 0 {
			return flattenCond(n.Children[0])
		}
		return table.Condition{}
	}
	return comparisonCondition(n)
}

func comparisonCondition(n *ast.Node) table.Condition {
	if len(n.Children) != 2 {
		return table.Condition{}
	}
	left, right := n.Children[0], n.Children[1]
	col := left
	lit := right
	if left.Kind == ast.Literal && right.Kind == ast.ColumnRef {
		col, lit = right, left
	}
	if col.Kind != ast.ColumnRef {
		return table.Condition{}
	}
	return table.Condition{Column: col.Value, Operator: n.Value, Value: literalValue(lit)}
}

// literalValue coerces a Literal/ColumnRef leaf to the any value
// table.Condition expects: int32 for a NUMBER, string otherwise.
func literalValue(n *ast.Node) any {
	if n.Kind == ast.Literal && n.Tok == token.NUMBER {
		if i, err := strconv.ParseInt(n.Value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return n.Value
}

func lowerSelect(stmt *ast.Node) (Plan, error) {
	tableName := stmt.Child(ast.TableName)
	if tableName == nil {
		return nil, wrapError("SELECT missing FROM table")
	}
	var plan Plan = SeqScanPlan{TableName: tableName.Value}

	if where := stmt.Child(ast.Where); where != nil && len(where.Children) > 0 {
		plan = FilterPlan{Input: plan, Cond: where.Children[0]}
	}

	selectList := stmt.Child(ast.SelectList)
	if selectList == nil {
		return nil, wrapError("SELECT missing select list")
	}
	items := lowerSelectItems(selectList)

	if groupBy := stmt.Child(ast.GroupBy); groupBy != nil {
		var keys []string
		for _, k := range groupBy.Children {
			keys = append(keys, k.Value)
		}
		plan = GroupByPlan{Input: plan, Keys: keys, Items: items}
	}

	if orderBy := stmt.Child(ast.OrderBy); orderBy != nil {
		var keys []OrderKey
		for _, k := range orderBy.Children {
			if len(k.Children) == 0 {
				continue
			}
			keys = append(keys, OrderKey{Column: k.Children[0].Value, Desc: k.Value == "DESC"})
		}
		plan = OrderByPlan{Input: plan, Keys: keys}
	}

	if limit := stmt.Child(ast.Limit); limit != nil {
		n, err := strconv.Atoi(limit.Value)
		if err != nil {
			return nil, wrapError("invalid LIMIT value %q", limit.Value)
		}
		plan = LimitPlan{Input: plan, Count: n}
	}

	return ProjectPlan{Input: plan, Items: items}, nil
}

func lowerSelectItems(list *ast.Node) []SelectItem {
	items := make([]SelectItem, 0, len(list.Children))
	for _, item := range list.Children {
		if len(item.Children) == 0 {
			continue
		}
		expr := item.Children[0]
		var si SelectItem
		switch expr.Kind {
		case ast.Star:
			si = SelectItem{Kind: ItemStar}
		case ast.AggCall:
			col := ""
			if len(expr.Children) > 0 && expr.Children[0].Kind == ast.ColumnRef {
				col = expr.Children[0].Value
			}
			si = SelectItem{Kind: ItemAgg, Agg: expr.Value, Column: col}
		default:
			si = SelectItem{Kind: ItemColumn, Column: expr.Value}
		}
		si.Alias = item.Value
		items = append(items, si)
	}
	return items
}
