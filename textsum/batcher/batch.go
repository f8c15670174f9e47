package batcher

// Batch is one padded slice of the dataset. Inputs and Targets are padded
// independently to their own widest row.
type Batch struct {
	Inputs        [][]int
	Targets       [][]int
	InputLengths  []int
	TargetLengths []int
}

// Size returns the number of rows.
func (b *Batch) Size() int { return len(b.Inputs) }

// InputWidth returns the padded width of the input rows.
func (b *Batch) InputWidth() int { return width(b.Inputs) }

// TargetWidth returns the padded width of the target rows.
func (b *Batch) TargetWidth() int { return width(b.Targets) }

func width(rows [][]int) int {
	if len(rows) == 0 {
		return 0
	}
	return len(rows[0])
}

// pad copies seqs into rows of equal width filled with padID and returns
// the rows, the real length of each sequence and the width.
func pad(seqs [][]int, padID int) ([][]int, []int, int) {
	w := 0
	for _, s := range seqs {
		w = max(w, len(s))
	}
	rows := make([][]int, len(seqs))
	lengths := make([]int, len(seqs))
	for i, s := range seqs {
		row := make([]int, w)
		n := copy(row, s)
		for j := n; j < w; j++ {
			row[j] = padID
		}
		rows[i] = row
		lengths[i] = len(s)
	}
	return rows, lengths, w
}
