package wasmout

// Section ids, in the canonical WebAssembly module order spec §4.5 requires.
const (
	sectionCustom   = 0
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionTable    = 4
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionStart    = 8
	sectionElement  = 9
	sectionCode     = 10
	sectionData     = 11
)

var magicAndVersion = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

// Encode serializes m as a version-1 WebAssembly binary: the eight standard
// sections in canonical order followed by a custom `name` section (spec
// §4.5, §6).
func Encode(m *Module) []byte {
	var out []byte
	out = append(out, magicAndVersion...)

	if len(m.Types) > 0 {
		out = appendSection(out, sectionType, encodeTypeSection(m))
	}
	if len(m.Imports) > 0 {
		out = appendSection(out, sectionImport, encodeImportSection(m))
	}
	if len(m.FuncTypeIndices) > 0 {
		out = appendSection(out, sectionFunction, encodeFunctionSection(m))
	}
	if m.Memory != nil {
		out = appendSection(out, sectionMemory, encodeMemorySection(m))
	}
	if len(m.Globals) > 0 {
		out = appendSection(out, sectionGlobal, encodeGlobalSection(m))
	}
	if len(m.Exports) > 0 {
		out = appendSection(out, sectionExport, encodeExportSection(m))
	}
	if len(m.Code) > 0 {
		out = appendSection(out, sectionCode, encodeCodeSection(m))
	}
	if len(m.Data) > 0 {
		out = appendSection(out, sectionData, encodeDataSection(m))
	}
	if len(m.FuncNames) > 0 {
		out = appendSection(out, sectionCustom, encodeNameSection(m))
	}
	return out
}

func appendSection(out []byte, id byte, body []byte) []byte {
	out = append(out, id)
	out = append(out, EncodeUint32(uint32(len(body)))...)
	return append(out, body...)
}

func encodeVec(count int, each func(i int) []byte) []byte {
	var body []byte
	body = append(body, EncodeUint32(uint32(count))...)
	for i := 0; i < count; i++ {
		body = append(body, each(i)...)
	}
	return body
}

func encodeName(s string) []byte {
	b := append([]byte{}, EncodeUint32(uint32(len(s)))...)
	return append(b, s...)
}

func encodeFuncType(ft FuncType) []byte {
	var b []byte
	b = append(b, 0x60) // functype tag
	b = append(b, encodeVec(len(ft.Params), func(i int) []byte { return []byte{ValueTypeByte(ft.Params[i])} })...)
	b = append(b, encodeVec(len(ft.Results), func(i int) []byte { return []byte{ValueTypeByte(ft.Results[i])} })...)
	return b
}

func encodeTypeSection(m *Module) []byte {
	return encodeVec(len(m.Types), func(i int) []byte { return encodeFuncType(m.Types[i]) })
}

func encodeImportSection(m *Module) []byte {
	return encodeVec(len(m.Imports), func(i int) []byte {
		imp := m.Imports[i]
		b := encodeName(imp.Module)
		b = append(b, encodeName(imp.Name)...)
		b = append(b, byte(imp.Kind))
		b = append(b, EncodeUint32(uint32(imp.TypeIndex))...)
		return b
	})
}

func encodeFunctionSection(m *Module) []byte {
	return encodeVec(len(m.FuncTypeIndices), func(i int) []byte {
		return EncodeUint32(uint32(m.FuncTypeIndices[i]))
	})
}

func encodeLimits(min uint32, max uint32, hasMax bool) []byte {
	if hasMax {
		b := []byte{0x01}
		b = append(b, EncodeUint32(min)...)
		return append(b, EncodeUint32(max)...)
	}
	b := []byte{0x00}
	return append(b, EncodeUint32(min)...)
}

func encodeMemorySection(m *Module) []byte {
	return encodeVec(1, func(i int) []byte {
		return encodeLimits(m.Memory.MinPages, m.Memory.MaxPages, m.Memory.HasMax)
	})
}

func encodeGlobalSection(m *Module) []byte {
	return encodeVec(len(m.Globals), func(i int) []byte {
		g := m.Globals[i]
		mut := byte(0)
		if g.Mutable {
			mut = 1
		}
		b := []byte{ValueTypeByte(g.Type), mut}
		return append(b, g.InitExpr...)
	})
}

func encodeExportSection(m *Module) []byte {
	return encodeVec(len(m.Exports), func(i int) []byte {
		e := m.Exports[i]
		b := encodeName(e.Name)
		b = append(b, byte(e.Kind))
		return append(b, EncodeUint32(e.Index)...)
	})
}

func encodeCodeSection(m *Module) []byte {
	return encodeVec(len(m.Code), func(i int) []byte {
		c := m.Code[i]
		var body []byte
		body = append(body, encodeVec(len(c.Locals), func(j int) []byte {
			lg := c.Locals[j]
			b := EncodeUint32(lg.Count)
			return append(b, ValueTypeByte(lg.Type))
		})...)
		body = append(body, c.Body...)
		out := EncodeUint32(uint32(len(body)))
		return append(out, body...)
	})
}

func encodeDataSection(m *Module) []byte {
	return encodeVec(len(m.Data), func(i int) []byte {
		d := m.Data[i]
		b := []byte{0x00} // active segment, memory index 0
		b = append(b, byte(OpI32Const))
		b = append(b, EncodeInt32(int32(d.Offset))...)
		b = append(b, byte(OpEnd))
		b = append(b, EncodeUint32(uint32(len(d.Bytes)))...)
		return append(b, d.Bytes...)
	})
}

// encodeNameSection emits the custom `name` section with only the function
// name subsection (id 1) populated, per spec §4.5.
func encodeNameSection(m *Module) []byte {
	indices := make([]uint32, 0, len(m.FuncNames))
	for idx := range m.FuncNames {
		indices = append(indices, idx)
	}
	// deterministic ascending order, matching function declaration order.
	for i := 1; i < len(indices); i++ {
		for j := i; j > 0 && indices[j-1] > indices[j]; j-- {
			indices[j-1], indices[j] = indices[j], indices[j-1]
		}
	}

	nameMap := encodeVec(len(indices), func(i int) []byte {
		idx := indices[i]
		b := EncodeUint32(idx)
		return append(b, encodeName(m.FuncNames[idx])...)
	})

	subsection := append([]byte{1}, EncodeUint32(uint32(len(nameMap)))...)
	subsection = append(subsection, nameMap...)

	out := encodeName("name")
	return append(out, subsection...)
}
