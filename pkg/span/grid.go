package span

// CalcRectFrom returns the grid of cells touched by any free pixel of
// source. A cell is 1<<gridXBits by 1<<gridYBits pixels; the result is
// indexed in cell units.
func CalcRectFrom(source *Buffer, gridXBits, gridYBits uint, pool *Pool) *Buffer {
	if source.ValidLines == 0 {
		return AllocIndex(source.StartY>>gridYBits, source.StartY>>gridYBits, pool)
	}
	startY := source.StartY >> gridYBits
	endY := ((source.EndY - 1) >> gridYBits) + 1
	b := AllocIndex(startY, endY, pool)

	var row, cells, scratch []Span
	gy := startY
	flush := func() {
		if len(row) > 0 {
			b.Lines[gy-startY] = b.store(row)
			b.ValidLines++
		}
		row = row[:0]
	}

	for i, line := range source.Lines {
		y := source.StartY + i
		if y>>gridYBits != gy {
			flush()
			gy = y >> gridYBits
		}
		if len(line) == 0 {
			continue
		}
		cells = cells[:0]
		for _, s := range line {
			c := Span{s.Start >> gridXBits, ((s.End - 1) >> gridXBits) + 1}
			if n := len(cells); n > 0 && c.Start <= cells[n-1].End {
				cells[n-1].End = max(cells[n-1].End, c.End)
				continue
			}
			cells = append(cells, c)
		}
		scratch = union(row, cells, scratch[:0])
		row, scratch = scratch, row
	}
	flush()
	return b
}

// CalcLatticeFrom returns the lattice points surrounding every cell of rect.
// Point (i, j) is the top-left corner of cell (i, j), so each cell row adds
// its own row and the one below, and each cell span [s, e) needs the points
// [s, e+1).
func CalcLatticeFrom(rect *Buffer, pool *Pool) *Buffer {
	if rect.ValidLines == 0 {
		return AllocIndex(rect.StartY, rect.StartY, pool)
	}
	b := AllocIndex(rect.StartY, rect.EndY+1, pool)

	var above, below, out []Span
	widen := func(dst, line []Span) []Span {
		dst = dst[:0]
		for _, s := range line {
			s.End++
			if n := len(dst); n > 0 && s.Start <= dst[n-1].End {
				dst[n-1].End = max(dst[n-1].End, s.End)
				continue
			}
			dst = append(dst, s)
		}
		return dst
	}

	for j := rect.StartY; j <= rect.EndY; j++ {
		above = widen(above, rect.Line(j-1))
		below = widen(below, rect.Line(j))
		out = union(above, below, out[:0])
		if len(out) > 0 {
			b.Lines[j-b.StartY] = b.store(out)
			b.ValidLines++
		}
	}
	return b
}
