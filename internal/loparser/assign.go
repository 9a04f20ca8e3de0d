package loparser

import (
	"github.com/lo-lang/locc/internal/diag"
	"github.com/lo-lang/locc/internal/loir"
	"github.com/lo-lang/locc/internal/lotype"
	"github.com/lo-lang/locc/internal/token"
)

// buildAssign implements `lhs = rhs` and the compound forms `+= -= *= /=`
// (spec §4.2). lhs has already been parsed as a *read* of the target
// location by the normal expression grammar; buildAssign inverts it into
// the matching store. A compound operator first rebuilds rhs as
// `lhs OP rhs`, then stores the result through the same inversion.
func buildAssign(bc *BlockContext, lhs loir.Instr, op infixOp, rhs loir.Instr, loc token.Location) (loir.Instr, error) {
	if !op.isAssign {
		return loir.Instr{}, diag.New(loc, diag.CategoryStructural, "buildAssign called on a non-assignment operator")
	}

	// `*p OP= rhs` / `p.field OP= rhs`: the combined value reads through
	// lhs.Address and the store writes through it again. Spilling the
	// address into a synthetic local first means a side-effecting pointer
	// expression (e.g. `*next_slot() += 1`) is only ever evaluated once
	// (spec §4.2's load-bind-spill requirement).
	if op.isCompound && (lhs.Kind == loir.KindLoad || lhs.Kind == loir.KindStructLoad) {
		return buildCompoundLoadAssign(bc, lhs, op, rhs, loc)
	}

	value := rhs
	if op.isCompound {
		combined, err := buildBinary(lhs, op.compoundOp, rhs, loc)
		if err != nil {
			return loir.Instr{}, err
		}
		value = combined
	} else if !lotype.Equal(lhs.Type, rhs.Type) {
		return loir.Instr{}, diag.New(loc, diag.CategoryType, "cannot assign %s to %s", rhs.Type, lhs.Type)
	}

	switch lhs.Kind {
	case loir.KindLocalGet:
		return loir.Instr{
			Kind: loir.KindSet, Type: lotype.Void, Loc: loc,
			Bind:  &loir.Instr{Kind: loir.KindUntypedLocalGet, LocalIndex: lhs.LocalIndex},
			Value: &value,
		}, nil

	case loir.KindGlobalGet:
		return loir.Instr{
			Kind: loir.KindGlobalSet, Type: lotype.Void, Loc: loc,
			GlobalIndex: lhs.GlobalIndex, Value: &value,
		}, nil

	case loir.KindStructGet:
		// Struct components sit at consecutive locals; writing the field
		// back is a Set at the adjusted base index.
		return loir.Instr{
			Kind: loir.KindSet, Type: lotype.Void, Loc: loc,
			Bind:  &loir.Instr{Kind: loir.KindUntypedLocalGet, LocalIndex: lhs.LocalIndex + lhs.BaseIndex},
			Value: &value,
		}, nil

	case loir.KindLoad:
		// `*ptr = value`: lhs.Address is the pointer expression already
		// parsed once; reuse it rather than re-evaluating the receiver
		// (spec §9's no-shared-subtrees note — we own this copy).
		return loir.Instr{
			Kind: loir.KindStore, Type: lotype.Void, Loc: loc,
			Address: lhs.Address, Align: lhs.Align, Offset: lhs.Offset, Value: &value,
		}, nil

	case loir.KindStructLoad:
		return loir.Instr{
			Kind: loir.KindStore, Type: lotype.Void, Loc: loc,
			Address: lhs.Address, Offset: uint32(lhs.BaseIndex), Value: &value,
		}, nil

	default:
		return loir.Instr{}, diag.New(loc, diag.CategoryStructural, "left-hand side of assignment is not an assignable location")
	}
}

// buildCompoundLoadAssign implements the load-bind spill for `*p OP= rhs`
// (lhs.Kind == KindLoad) and `p.field OP= rhs` (lhs.Kind == KindStructLoad):
// bind the address to a synthetic local once, then build the combined value
// and the store against that local instead of lhs.Address's subtree
// directly (spec §4.2, loir.Instr.LocalIndex's KindSet(load-bind spill)).
func buildCompoundLoadAssign(bc *BlockContext, lhs loir.Instr, op infixOp, rhs loir.Instr, loc token.Location) (loir.Instr, error) {
	addrLocal := bc.Fn.DeclareLocal("$addr", lhs.Address.Type)
	bindAddr := loir.Instr{
		Kind: loir.KindSet, Type: lotype.Void, Loc: loc,
		Bind:  &loir.Instr{Kind: loir.KindUntypedLocalGet, LocalIndex: addrLocal.Index},
		Value: lhs.Address,
	}
	spilled := loir.Instr{Kind: loir.KindUntypedLocalGet, LocalIndex: addrLocal.Index, Type: lhs.Address.Type, Loc: loc}

	reread := lhs
	reread.Address = &spilled
	combined, err := buildBinary(reread, op.compoundOp, rhs, loc)
	if err != nil {
		return loir.Instr{}, err
	}

	store := loir.Instr{Kind: loir.KindStore, Type: lotype.Void, Loc: loc, Address: &spilled, Value: &combined}
	switch lhs.Kind {
	case loir.KindLoad:
		store.Align, store.Offset = lhs.Align, lhs.Offset
	case loir.KindStructLoad:
		store.Offset = uint32(lhs.BaseIndex)
	}

	return loir.Instr{
		Kind: loir.KindBlock, Type: lotype.Void, Loc: loc, BlockKind: loir.BlockPlain,
		Body: []loir.Instr{bindAddr, store},
	}, nil
}
