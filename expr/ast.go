package expr

// Node is an expression. Stmt is a statement inside a function body.
type Node interface {
	node()
}

type Stmt interface {
	stmt()
}

type (
	Literal struct {
		Value any
	}
	Ident struct {
		Name string
	}
	This struct{}

	TemplateLit struct {
		Quasis []string
		Exprs  []Node
	}
	ArrayLit struct {
		Elems []Node
	}
	Property struct {
		Key      string
		Computed Node
		Value    Node
		Spread   bool
	}
	ObjectLit struct {
		Props []Property
	}
	Spread struct {
		Arg Node
	}

	Member struct {
		Object   Node
		Prop     string
		Computed Node
		Optional bool
	}
	Call struct {
		Callee   Node
		Args     []Node
		Optional bool
	}
	New struct {
		Callee Node
		Args   []Node
	}
	// OptionalChain bounds the short circuit of a ?. chain.
	OptionalChain struct {
		X Node
	}

	Unary struct {
		Op string
		X  Node
	}
	Update struct {
		Op     string
		Prefix bool
		Target Node
	}
	Binary struct {
		Op   string
		L, R Node
	}
	Logical struct {
		Op   string
		L, R Node
	}
	Cond struct {
		Test, Then, Else Node
	}
	Assign struct {
		Op     string
		Target Node
		Value  Node
	}
	Seq struct {
		Exprs []Node
	}
	FuncLit struct {
		Name   string
		Params []string
		Rest   string
		Arrow  bool
		// Expr is the body of a concise arrow, Body otherwise.
		Expr Node
		Body []Stmt
	}
)

func (*Literal) node()       {}
func (*Ident) node()         {}
func (*This) node()          {}
func (*TemplateLit) node()   {}
func (*ArrayLit) node()      {}
func (*ObjectLit) node()     {}
func (*Spread) node()        {}
func (*Member) node()        {}
func (*Call) node()          {}
func (*New) node()           {}
func (*OptionalChain) node() {}
func (*Unary) node()         {}
func (*Update) node()        {}
func (*Binary) node()        {}
func (*Logical) node()       {}
func (*Cond) node()          {}
func (*Assign) node()        {}
func (*Seq) node()           {}
func (*FuncLit) node()       {}

type (
	ExprStmt struct {
		X Node
	}
	VarDecl struct {
		Kind  string
		Names []string
		Inits []Node
	}
	Return struct {
		X Node
	}
	Throw struct {
		X Node
	}
	If struct {
		Test Node
		Then Stmt
		Else Stmt
	}
	Block struct {
		Body []Stmt
	}
	ForOf struct {
		Kind string
		Name string
		Iter Node
		Body Stmt
	}
	Empty struct{}
)

func (*ExprStmt) stmt() {}
func (*VarDecl) stmt()  {}
func (*Return) stmt()   {}
func (*Throw) stmt()    {}
func (*If) stmt()       {}
func (*Block) stmt()    {}
func (*ForOf) stmt()    {}
func (*Empty) stmt()    {}
