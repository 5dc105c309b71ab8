package parser

import (
	"github.com/nrgarcia/machdb/ast"
	"github.com/nrgarcia/machdb/token"
)

// parseInsert parses:
//
//	INSERT INTO table ['(' col (',' col)* ')'] VALUES '(' lit (',' lit)* ')'
func (p *Parser) parseInsert() *ast.Node {
	start := p.cur.Pos
	p.advance() // INSERT
	p.expect(token.INTO)
	table := p.expectIdent()

	n := ast.NewNode(ast.Insert, "")
	n.Pos = start
	n.Children = append(n.Children, &ast.Node{Kind: ast.TableName, Value: table.Value, Pos: table.Pos})

	if p.curIs(token.LPAREN) {
		n.Children = append(n.Children, p.parseColumnList())
	}

	p.expect(token.VALUES)
	n.Children = append(n.Children, p.parseValueList())
	return n
}

func (p *Parser) parseColumnList() *ast.Node {
	pos := p.cur.Pos
	p.expect(token.LPAREN)
	n := &ast.Node{Kind: ast.ColumnList, Pos: pos}
	for {
		col := p.expectIdent()
		n.Children = append(n.Children, &ast.Node{Kind: ast.ColumnRef, Value: col.Value, Pos: col.Pos})
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RPAREN)
	return n
}

func (p *Parser) parseValueList() *ast.Node {
	pos := p.cur.Pos
	p.expect(token.LPAREN)
	n := &ast.Node{Kind: ast.ValueList, Pos: pos}
	for {
		n.Children = append(n.Children, p.parseLiteral())
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RPAREN)
	return n
}

func (p *Parser) parseLiteral() *ast.Node {
	switch p.cur.Type {
	case token.NUMBER:
		t := p.cur
		p.advance()
		return &ast.Node{Kind: ast.Literal, Value: t.Value, Pos: t.Pos, Tok: token.NUMBER}
	case token.STRING:
		t := p.cur
		p.advance()
		return &ast.Node{Kind: ast.Literal, Value: t.Value, Pos: t.Pos, Tok: token.STRING}
	default:
		p.fail("literal")
		return nil
	}
}

// parseUpdate parses:
//
//	UPDATE table SET col '=' lit (',' col '=' lit)* [WHERE cond]
func (p *Parser) parseUpdate() *ast.Node {
	start := p.cur.Pos
	p.advance() // UPDATE
	table := p.expectIdent()

	n := ast.NewNode(ast.Update, "")
	n.Pos = start
	n.Children = append(n.Children, &ast.Node{Kind: ast.TableName, Value: table.Value, Pos: table.Pos})

	p.expect(token.SET)
	assigns := &ast.Node{Kind: ast.AssignList, Pos: p.cur.Pos}
	for {
		col := p.expectIdent()
		p.expect(token.EQ)
		lit := p.parseLiteral()
		asn := &ast.Node{Kind: ast.Assignment, Value: col.Value, Pos: col.Pos}
		asn.Children = append(asn.Children, lit)
		assigns.Children = append(assigns.Children, asn)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	n.Children = append(n.Children, assigns)

	if p.curIs(token.WHERE) {
		wherePos := p.cur.Pos
		p.advance()
		where := &ast.Node{Kind: ast.Where, Pos: wherePos}
		where.Children = append(where.Children, p.parseCond())
		n.Children = append(n.Children, where)
	}
	return n
}

// parseDelete parses:
//
//	DELETE FROM table [WHERE cond]
func (p *Parser) parseDelete() *ast.Node {
	start := p.cur.Pos
	p.advance() // DELETE
	p.expect(token.FROM)
	table := p.expectIdent()

	n := ast.NewNode(ast.Delete, "")
	n.Pos = start
	n.Children = append(n.Children, &ast.Node{Kind: ast.TableName, Value: table.Value, Pos: table.Pos})

	if p.curIs(token.WHERE) {
		wherePos := p.cur.Pos
		p.advance()
		where := &ast.Node{Kind: ast.Where, Pos: wherePos}
		where.Children = append(where.Children, p.parseCond())
		n.Children = append(n.Children, where)
	}
	return n
}
