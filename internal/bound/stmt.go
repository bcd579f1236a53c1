package bound

import "github.com/malphas-lang/nullflow/internal/diag"

// Stmt is a bound statement.
type Stmt interface {
	Node
	stmtNode()
}

// Block is a brace-delimited statement list.
type Block struct {
	Stmts []Stmt
	Pos   diag.Span
}

// LocalDecl declares Symbol, optionally initialized.
type LocalDecl struct {
	Symbol *Symbol
	Init   Expr
	Pos    diag.Span
}

// ExprStmt evaluates X for its effects.
type ExprStmt struct {
	X   Expr
	Pos diag.Span
}

// If is `if (Cond) Then else Else`; Else may be nil.
type If struct {
	Cond Expr
	Then Stmt
	Else Stmt
	Pos  diag.Span
}

// While is `while (Cond) Body`.
type While struct {
	Cond Expr
	Body Stmt
	Pos  diag.Span
}

// DoWhile is `do Body while (Cond)`.
type DoWhile struct {
	Body Stmt
	Cond Expr
	Pos  diag.Span
}

// For is `for (Init; Cond; Post) Body`. A nil Cond loops forever.
type For struct {
	Init []Stmt
	Cond Expr
	Post []Expr
	Body Stmt
	Pos  diag.Span
}

// Foreach is `foreach (Var in Collection) Body`.
type Foreach struct {
	Var        *Symbol
	Collection Expr
	Body       Stmt
	Pos        diag.Span
}

// Return returns Value, which is nil in void methods.
type Return struct {
	Value Expr
	Pos   diag.Span
}

// Throw throws Value; a nil Value rethrows inside a catch.
type Throw struct {
	Value Expr
	Pos   diag.Span
}

// Catch is one catch clause. Var and Filter may be nil.
type Catch struct {
	Var    *Symbol
	Filter Expr
	Body   *Block
	Pos    diag.Span
}

// Try is `try Body catch... finally Finally`.
type Try struct {
	Body    *Block
	Catches []*Catch
	Finally *Block
	Pos     diag.Span
}

// SwitchLabel is `case Pattern when When:`; a nil Pattern is `default:`.
type SwitchLabel struct {
	Pattern Pattern
	When    Expr
	Pos     diag.Span
}

// SwitchSection groups the labels that share one statement list.
type SwitchSection struct {
	Labels []*SwitchLabel
	Body   []Stmt
	Pos    diag.Span
}

// Switch is a switch statement.
type Switch struct {
	Scrutinee Expr
	Sections  []*SwitchSection
	Pos       diag.Span
}

// Break exits the innermost loop or switch.
type Break struct {
	Pos diag.Span
}

// Continue jumps to the next iteration of the innermost loop.
type Continue struct {
	Pos diag.Span
}

func (s *Block) Span() diag.Span         { return s.Pos }
func (s *LocalDecl) Span() diag.Span     { return s.Pos }
func (s *ExprStmt) Span() diag.Span      { return s.Pos }
func (s *If) Span() diag.Span            { return s.Pos }
func (s *While) Span() diag.Span         { return s.Pos }
func (s *DoWhile) Span() diag.Span       { return s.Pos }
func (s *For) Span() diag.Span           { return s.Pos }
func (s *Foreach) Span() diag.Span       { return s.Pos }
func (s *Return) Span() diag.Span        { return s.Pos }
func (s *Throw) Span() diag.Span         { return s.Pos }
func (s *Catch) Span() diag.Span         { return s.Pos }
func (s *Try) Span() diag.Span           { return s.Pos }
func (s *SwitchLabel) Span() diag.Span   { return s.Pos }
func (s *SwitchSection) Span() diag.Span { return s.Pos }
func (s *Switch) Span() diag.Span        { return s.Pos }
func (s *Break) Span() diag.Span         { return s.Pos }
func (s *Continue) Span() diag.Span      { return s.Pos }

func (*Block) stmtNode()     {}
func (*LocalDecl) stmtNode() {}
func (*ExprStmt) stmtNode()  {}
func (*If) stmtNode()        {}
func (*While) stmtNode()     {}
func (*DoWhile) stmtNode()   {}
func (*For) stmtNode()       {}
func (*Foreach) stmtNode()   {}
func (*Return) stmtNode()    {}
func (*Throw) stmtNode()     {}
func (*Try) stmtNode()       {}
func (*Switch) stmtNode()    {}
func (*Break) stmtNode()     {}
func (*Continue) stmtNode()  {}
