package typeck

import (
	"fmt"
	"strconv"
	"strings"

	"ember/internal/types"
)

// typeString renders a type for diagnostics. Depth-limited so a buggy
// cyclic binding can never hang message formatting.
func (c *checker) typeString(id types.TypeID) string {
	return c.typeStringDepth(id, 0)
}

func (c *checker) typeStringDepth(id types.TypeID, depth int) string {
	if depth > 16 {
		return "..."
	}
	id = c.resolve(id)
	if id == types.NoTypeID {
		return "<error>"
	}
	t, ok := c.u.Types.Lookup(id)
	if !ok {
		return "<error>"
	}
	switch t.Kind {
	case types.KindUnit:
		return "void"
	case types.KindNever:
		return "none"
	case types.KindBool:
		return "bool"
	case types.KindChar:
		return "char"
	case types.KindString:
		return "string"
	case types.KindInt:
		if t.Width == types.WidthAny {
			return "int"
		}
		return "i" + strconv.Itoa(int(widthBits(t.Width)))
	case types.KindUint:
		if t.Width == types.WidthAny {
			return "uint"
		}
		return "u" + strconv.Itoa(int(widthBits(t.Width)))
	case types.KindFloat:
		if t.Width == types.Width32 {
			return "f32"
		}
		return "f64"
	case types.KindArray:
		return fmt.Sprintf("[%s; %d]", c.typeStringDepth(t.Elem, depth+1), t.Count)
	case types.KindSlice:
		return "[" + c.typeStringDepth(t.Elem, depth+1) + "]"
	case types.KindReference:
		prefix := "&"
		if t.Lifetime != 0 {
			prefix += c.u.Strings.MustLookup(t.Lifetime) + " "
		}
		if t.Mutable {
			prefix += "mut "
		}
		return prefix + c.typeStringDepth(t.Elem, depth+1)
	case types.KindPointer:
		if t.Mutable {
			return "*mut " + c.typeStringDepth(t.Elem, depth+1)
		}
		return "*" + c.typeStringDepth(t.Elem, depth+1)
	case types.KindTuple:
		info, _ := c.u.Types.TupleInfo(id)
		parts := make([]string, len(info.Elements))
		for i, el := range info.Elements {
			parts[i] = c.typeStringDepth(el, depth+1)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case types.KindFunction:
		info, _ := c.u.Types.FnInfo(id)
		parts := make([]string, len(info.Params))
		for i, p := range info.Params {
			parts[i] = c.typeStringDepth(p, depth+1)
		}
		return "fn(" + strings.Join(parts, ", ") + ") -> " + c.typeStringDepth(info.Return, depth+1)
	case types.KindStruct:
		info, _ := c.u.Types.StructInfo(id)
		return c.u.Strings.MustLookup(info.Name)
	case types.KindEnum:
		info, _ := c.u.Types.EnumInfo(id)
		return c.u.Strings.MustLookup(info.Name)
	case types.KindTrait:
		info, _ := c.u.Types.TraitInfo(id)
		return c.u.Strings.MustLookup(info.Name)
	case types.KindTypeVar:
		return "_"
	case types.KindSelfType:
		return "Self"
	case types.KindAssocTypeRef:
		info, _ := c.u.Types.AssocTypeRefInfo(id)
		return "Self::" + c.u.Strings.MustLookup(info.Name)
	case types.KindOpaque:
		info, _ := c.u.Types.OpaqueInfo(id)
		return c.u.Strings.MustLookup(info.Name)
	case types.KindGenericInst:
		info, _ := c.u.Types.GenericInstInfo(id)
		parts := make([]string, 0, len(info.TypeArgs)+len(info.ConstArgs))
		for _, a := range info.TypeArgs {
			parts = append(parts, c.typeStringDepth(a, depth+1))
		}
		for _, a := range info.ConstArgs {
			parts = append(parts, strconv.FormatInt(a, 10))
		}
		return c.typeStringDepth(info.Base, depth+1) + "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<invalid>"
	}
}
