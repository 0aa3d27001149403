package ast

// Every ID type below is a 1-based arena index; the zero value means "no
// node" (or, post-resolve/typecheck, a tainted annotation).
type (
	FileID      uint32
	ItemID      uint32
	StmtID      uint32
	ExprID      uint32
	TypeExprID  uint32
	PatternID   uint32
	FnParamID   uint32
	TypeParamID uint32
	MatchArmID  uint32
	FieldInitID uint32
)

const (
	NoFileID      FileID      = 0
	NoItemID      ItemID      = 0
	NoStmtID      StmtID      = 0
	NoExprID      ExprID      = 0
	NoTypeExprID  TypeExprID  = 0
	NoPatternID   PatternID   = 0
	NoFnParamID   FnParamID   = 0
	NoTypeParamID TypeParamID = 0
	NoMatchArmID  MatchArmID  = 0
	NoFieldInitID FieldInitID = 0
)

func (id ItemID) IsValid() bool      { return id != NoItemID }
func (id StmtID) IsValid() bool      { return id != NoStmtID }
func (id ExprID) IsValid() bool      { return id != NoExprID }
func (id TypeExprID) IsValid() bool  { return id != NoTypeExprID }
func (id PatternID) IsValid() bool   { return id != NoPatternID }
func (id FnParamID) IsValid() bool   { return id != NoFnParamID }
func (id TypeParamID) IsValid() bool { return id != NoTypeParamID }
func (id MatchArmID) IsValid() bool  { return id != NoMatchArmID }
func (id FileID) IsValid() bool      { return id != NoFileID }
