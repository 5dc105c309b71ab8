// Package parser implements machdb's recursive-descent SQL parser. It
// has no backtracking: every production decides its path from at most
// one token of lookahead.
package parser

import (
	"sync"

	"github.com/nrgarcia/machdb/ast"
	"github.com/nrgarcia/machdb/dberr"
	"github.com/nrgarcia/machdb/lexer"
	"github.com/nrgarcia/machdb/token"
)

// Parser is a recursive-descent parser over a token stream.
type Parser struct {
	lexer *lexer.Lexer
	cur   token.Item
	err   error
}

// New creates a Parser for input.
func New(input string) *Parser {
	p := &Parser{lexer: lexer.New(input)}
	p.advance()
	return p
}

var parserPool = sync.Pool{
	New: func() any { return &Parser{} },
}

// Get returns a pooled Parser for input. Call Put when done.
func Get(input string) *Parser {
	p := parserPool.Get().(*Parser)
	p.lexer = lexer.Get(input)
	p.err = nil
	p.advance()
	return p
}

// Put returns p and its lexer to their pools.
func Put(p *Parser) {
	if p.lexer != nil {
		lexer.Put(p.lexer)
		p.lexer = nil
	}
	parserPool.Put(p)
}

// ParseOne parses a single statement, first skipping any ';' before
// it. The statement's own trailing ';' is left in place and skipped by
// the next call. It returns (nil, nil) at end of input.
func (p *Parser) ParseOne() (*ast.Node, error) {
	p.skipSemicolons()
	if p.curIs(token.EOF) {
		return nil, nil
	}
	stmt := p.parseStatement()
	if p.err != nil {
		return nil, p.err
	}
	return stmt, nil
}

// ParseAll parses every statement in the input in order.
func (p *Parser) ParseAll() ([]*ast.Node, error) {
	var stmts []*ast.Node
	for {
		stmt, err := p.ParseOne()
		if err != nil {
			return stmts, err
		}
		if stmt == nil {
			break
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// Parse parses input and returns all of its statements.
func Parse(input string) ([]*ast.Node, error) {
	p := Get(input)
	defer Put(p)
	return p.ParseAll()
}

func (p *Parser) skipSemicolons() {
	for p.curIs(token.SEMICOLON) {
		p.advance()
	}
}

func (p *Parser) advance() {
	p.cur = p.lexer.Next()
}

func (p *Parser) curIs(t token.Token) bool {
	return p.cur.Type == t
}

// expect consumes the current token if it matches t, else records a
// ParseError carrying (line, column, expected).
func (p *Parser) expect(t token.Token) token.Item {
	cur := p.cur
	if cur.Type != t {
		p.fail(t.String())
		return cur
	}
	p.advance()
	return cur
}

// expectIdent consumes the current token if it is an IDENT, else
// records a ParseError. Keywords are not accepted as identifiers.
func (p *Parser) expectIdent() token.Item {
	cur := p.cur
	if cur.Type != token.IDENT {
		p.fail("identifier")
		return cur
	}
	p.advance()
	return cur
}

func (p *Parser) fail(expected string) {
	if p.err != nil {
		return
	}
	p.err = dberr.New(dberr.ParseError, "line %d, column %d: expected %s, got %s",
		p.cur.Pos.Line, p.cur.Pos.Column, expected, describeToken(p.cur))
}

func describeToken(it token.Item) string {
	if it.Type == token.EOF {
		return "EOF"
	}
	if it.Value != "" {
		return it.Value
	}
	return it.Type.String()
}

func (p *Parser) parseStatement() *ast.Node {
	switch p.cur.Type {
	case token.SELECT:
		return p.parseSelect()
	case token.INSERT:
		return p.parseInsert()
	case token.UPDATE:
		return p.parseUpdate()
	case token.DELETE:
		return p.parseDelete()
	case token.CREATE:
		return p.parseCreate()
	case token.DROP:
		return p.parseDropIndex()
	default:
		p.fail("SELECT, INSERT, UPDATE, DELETE, CREATE, or DROP")
		return nil
	}
}

// parseCreate dispatches CREATE TABLE vs CREATE [UNIQUE] INDEX.
func (p *Parser) parseCreate() *ast.Node {
	p.advance() // CREATE
	if p.curIs(token.UNIQUE) || p.curIs(token.INDEX) {
		return p.parseCreateIndex()
	}
	if p.curIs(token.TABLE) {
		return p.parseCreateTable()
	}
	p.fail("TABLE or INDEX")
	return nil
}

// parseCreateTable: CREATE TABLE name(col type, ...);
func (p *Parser) parseCreateTable() *ast.Node {
	p.expect(token.TABLE)
	name := p.expectIdent()
	n := ast.NewNode(ast.CreateTable, "")
	n.Pos = name.Pos
	n.Children = append(n.Children, &ast.Node{Kind: ast.TableName, Value: name.Value, Pos: name.Pos})

	p.expect(token.LPAREN)
	for {
		col := p.expectIdent()
		colNode := &ast.Node{Kind: ast.ColumnDef, Value: col.Value, Pos: col.Pos}
		colNode.Children = append(colNode.Children, p.parseColumnType())
		n.Children = append(n.Children, colNode)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RPAREN)
	return n
}

func (p *Parser) parseColumnType() *ast.Node {
	switch p.cur.Type {
	case token.INT:
		t := p.cur
		p.advance()
		return &ast.Node{Kind: ast.Int, Value: "INT", Pos: t.Pos}
	case token.VARCHAR:
		t := p.cur
		p.advance()
		return &ast.Node{Kind: ast.Varchar, Value: "VARCHAR", Pos: t.Pos}
	default:
		p.fail("INT or VARCHAR")
		return nil
	}
}

// parseCreateIndex: CREATE [UNIQUE] INDEX name ON table(col);
func (p *Parser) parseCreateIndex() *ast.Node {
	unique := ""
	if p.curIs(token.UNIQUE) {
		unique = "UNIQUE"
		p.advance()
	}
	p.expect(token.INDEX)
	name := p.expectIdent()
	n := ast.NewNode(ast.CreateIndex, unique)
	n.Pos = name.Pos
	n.Children = append(n.Children, &ast.Node{Kind: ast.TableName, Value: name.Value, Pos: name.Pos})

	p.expect(token.ON)
	table := p.expectIdent()
	n.Children = append(n.Children, &ast.Node{Kind: ast.TableName, Value: table.Value, Pos: table.Pos})

	p.expect(token.LPAREN)
	col := p.expectIdent()
	n.Children = append(n.Children, &ast.Node{Kind: ast.ColumnRef, Value: col.Value, Pos: col.Pos})
	p.expect(token.RPAREN)
	return n
}

// parseDropIndex: DROP INDEX name;
func (p *Parser) parseDropIndex() *ast.Node {
	p.advance() // DROP
	p.expect(token.INDEX)
	name := p.expectIdent()
	return &ast.Node{Kind: ast.DropIndex, Value: name.Value, Pos: name.Pos}
}
