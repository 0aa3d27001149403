package typeck

import (
	"fmt"

	"ember/internal/ast"
	"ember/internal/diag"
	"ember/internal/types"
)

// evalConst evaluates a constant expression used in a type position or a
// const declaration: integer literals, arithmetic with
// the declared width's bounds, boolean logic, and previously evaluated
// named consts. Division by zero and out-of-width results are diagnosed
// here; callers get ok=false and no value.
func (c *checker) evalConst(id ast.ExprID, width types.Width, env lowerEnv) (int64, bool) {
	if !id.IsValid() {
		return 0, false
	}
	e := c.u.Builder.Exprs.Get(id)
	if e == nil {
		return 0, false
	}
	switch e.Kind {
	case ast.ExprLitInt:
		return c.checkWidth(e.LitInt, width, e)

	case ast.ExprLitBool:
		if e.LitBool {
			return 1, true
		}
		return 0, true

	case ast.ExprGroup:
		return c.evalConst(e.Operand, width, env)

	case ast.ExprIdent:
		if sym, ok := c.res.SymbolOf(id); ok {
			if v, has := c.out.ConstValues[sym]; has {
				return v, true
			}
		}
		return 0, false

	case ast.ExprUnary:
		v, ok := c.evalConst(e.Operand, width, env)
		if !ok {
			return 0, false
		}
		switch e.UnOp {
		case ast.UnaryNeg:
			return c.checkWidth(-v, width, e)
		case ast.UnaryNot:
			if v == 0 {
				return 1, true
			}
			return 0, true
		case ast.UnaryBitNot:
			return c.checkWidth(^v, width, e)
		}
		return 0, false

	case ast.ExprBinary:
		lhs, okL := c.evalConst(e.Lhs, width, env)
		rhs, okR := c.evalConst(e.Rhs, width, env)
		if !okL || !okR {
			return 0, false
		}
		switch e.BinOp {
		case ast.BinAdd:
			return c.checkWidth(lhs+rhs, width, e)
		case ast.BinSub:
			return c.checkWidth(lhs-rhs, width, e)
		case ast.BinMul:
			return c.checkWidth(lhs*rhs, width, e)
		case ast.BinDiv, ast.BinMod:
			if rhs == 0 {
				c.u.Diags.Add(diag.NewError(diag.ConstEvalDivByZero, e.Span, "division by zero in constant expression"))
				return 0, false
			}
			if e.BinOp == ast.BinDiv {
				return c.checkWidth(lhs/rhs, width, e)
			}
			return c.checkWidth(lhs%rhs, width, e)
		case ast.BinBitAnd:
			return lhs & rhs, true
		case ast.BinBitOr:
			return lhs | rhs, true
		case ast.BinBitXor:
			return lhs ^ rhs, true
		case ast.BinShl:
			return c.checkWidth(lhs<<uint64(rhs&63), width, e) // #nosec G115 -- masked shift
		case ast.BinShr:
			return lhs >> uint64(rhs&63), true // #nosec G115 -- masked shift
		case ast.BinLogicalAnd:
			return boolVal(lhs != 0 && rhs != 0), true
		case ast.BinLogicalOr:
			return boolVal(lhs != 0 || rhs != 0), true
		case ast.BinEq:
			return boolVal(lhs == rhs), true
		case ast.BinNotEq:
			return boolVal(lhs != rhs), true
		case ast.BinLt:
			return boolVal(lhs < rhs), true
		case ast.BinLtEq:
			return boolVal(lhs <= rhs), true
		case ast.BinGt:
			return boolVal(lhs > rhs), true
		case ast.BinGtEq:
			return boolVal(lhs >= rhs), true
		}
		return 0, false

	default:
		return 0, false
	}
}

// checkWidth verifies v fits the declared two's-complement width,
// diagnosing ConstEvalOverflow otherwise.
func (c *checker) checkWidth(v int64, width types.Width, e *ast.Expr) (int64, bool) {
	lo, hi := widthBounds(width)
	if v < lo || v > hi {
		c.u.Diags.Add(diag.NewError(diag.ConstEvalOverflow, e.Span,
			fmt.Sprintf("constant %d overflows %d-bit width", v, widthBits(width))))
		return 0, false
	}
	return v, true
}

func widthBounds(w types.Width) (int64, int64) {
	bits := widthBits(w)
	hi := int64(1)<<(bits-1) - 1
	return -hi - 1, hi
}

func widthBits(w types.Width) uint {
	switch w {
	case types.Width8:
		return 8
	case types.Width16:
		return 16
	case types.Width64:
		return 64
	default:
		return 32
	}
}

func boolVal(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
