package parser

import (
	"github.com/nrgarcia/machdb/ast"
	"github.com/nrgarcia/machdb/token"
)

// parseSelect parses:
//
//	SELECT selectList FROM table [WHERE cond]
//	  [GROUP BY col (',' col)*] [ORDER BY orderKey (',' orderKey)*]
//	  [LIMIT NUMBER]
func (p *Parser) parseSelect() *ast.Node {
	start := p.cur.Pos
	p.advance() // SELECT

	n := ast.NewNode(ast.Select, "")
	n.Pos = start
	n.Children = append(n.Children, p.parseSelectList())

	p.expect(token.FROM)
	table := p.expectIdent()
	n.Children = append(n.Children, &ast.Node{Kind: ast.TableName, Value: table.Value, Pos: table.Pos})

	if p.curIs(token.WHERE) {
		wherePos := p.cur.Pos
		p.advance()
		where := &ast.Node{Kind: ast.Where, Pos: wherePos}
		where.Children = append(where.Children, p.parseCond())
		n.Children = append(n.Children, where)
	}

	if p.curIs(token.GROUP) {
		n.Children = append(n.Children, p.parseGroupBy())
	}

	if p.curIs(token.ORDER) {
		n.Children = append(n.Children, p.parseOrderBy())
	}

	if p.curIs(token.LIMIT) {
		limPos := p.cur.Pos
		p.advance()
		count := p.expect(token.NUMBER)
		n.Children = append(n.Children, &ast.Node{Kind: ast.Limit, Value: count.Value, Pos: limPos})
	}

	return n
}

func (p *Parser) parseSelectList() *ast.Node {
	list := &ast.Node{Kind: ast.SelectList, Pos: p.cur.Pos}
	if p.curIs(token.ASTERISK) {
		star := &ast.Node{Kind: ast.Star, Value: "*", Pos: p.cur.Pos}
		p.advance()
		item := &ast.Node{Kind: ast.SelectItem, Pos: star.Pos}
		item.Children = append(item.Children, star)
		list.Children = append(list.Children, item)
		return list
	}
	for {
		list.Children = append(list.Children, p.parseSelectItem())
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return list
}

func (p *Parser) parseSelectItem() *ast.Node {
	pos := p.cur.Pos
	var expr *ast.Node
	if isAggKeyword(p.cur.Type) {
		expr = p.parseAggCall()
	} else {
		col := p.expectIdent()
		expr = &ast.Node{Kind: ast.ColumnRef, Value: col.Value, Pos: col.Pos}
	}
	item := &ast.Node{Kind: ast.SelectItem, Pos: pos}
	alias := ""
	if p.curIs(token.AS) {
		p.advance()
		aliasTok := p.expectIdent()
		alias = aliasTok.Value
	}
	item.Value = alias
	item.Children = append(item.Children, expr)
	return item
}

func isAggKeyword(t token.Token) bool {
	switch t {
	case token.COUNT, token.SUM, token.AVG, token.MAX, token.MIN:
		return true
	}
	return false
}

func (p *Parser) parseAggCall() *ast.Node {
	name := p.cur.Type.String()
	pos := p.cur.Pos
	p.advance()
	p.expect(token.LPAREN)
	n := &ast.Node{Kind: ast.AggCall, Value: name, Pos: pos}
	if p.curIs(token.ASTERISK) {
		n.Children = append(n.Children, &ast.Node{Kind: ast.Star, Value: "*", Pos: p.cur.Pos})
		p.advance()
	} else {
		col := p.expectIdent()
		n.Children = append(n.Children, &ast.Node{Kind: ast.ColumnRef, Value: col.Value, Pos: col.Pos})
	}
	p.expect(token.RPAREN)
	return n
}

func (p *Parser) parseGroupBy() *ast.Node {
	pos := p.cur.Pos
	p.advance() // GROUP
	p.expect(token.BY)
	n := &ast.Node{Kind: ast.GroupBy, Pos: pos}
	for {
		col := p.expectIdent()
		n.Children = append(n.Children, &ast.Node{Kind: ast.ColumnRef, Value: col.Value, Pos: col.Pos})
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return n
}

func (p *Parser) parseOrderBy() *ast.Node {
	pos := p.cur.Pos
	p.advance() // ORDER
	p.expect(token.BY)
	n := &ast.Node{Kind: ast.OrderBy, Pos: pos}
	for {
		col := p.expectIdent()
		dir := "ASC"
		if p.curIs(token.ASC) {
			p.advance()
		} else if p.curIs(token.DESC) {
			dir = "DESC"
			p.advance()
		}
		key := &ast.Node{Kind: ast.OrderKey, Value: dir, Pos: col.Pos}
		key.Children = append(key.Children, &ast.Node{Kind: ast.ColumnRef, Value: col.Value, Pos: col.Pos})
		n.Children = append(n.Children, key)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return n
}
