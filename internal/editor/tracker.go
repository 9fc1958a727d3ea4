package editor

// Tracker is a row of checkboxes. Only the number of checked boxes survives
// a resize: after Resize the first n boxes are checked, where n is the old
// checked count clamped to the new size. Rows hold at most MaxTrackerBoxes.
type Tracker struct {
	Name  string
	boxes []bool
}

// NewTracker returns a tracker with max boxes, the first checked of them ticked.
func NewTracker(name string, max, checked int) *Tracker {
	t := &Tracker{Name: name}
	t.fill(max, checked)
	return t
}

func (t *Tracker) fill(max, checked int) {
	if max < 0 {
		max = 0
	}
	if max > MaxTrackerBoxes {
		max = MaxTrackerBoxes
	}
	t.boxes = make([]bool, max)
	for i := 0; i < checked && i < max; i++ {
		t.boxes[i] = true
	}
}

func (t *Tracker) Max() int { return len(t.boxes) }

// Checked is the number of ticked boxes, wherever they are.
func (t *Tracker) Checked() int {
	n := 0
	for _, b := range t.boxes {
		if b {
			n++
		}
	}
	return n
}

// Boxes returns a copy of the box states in display order.
func (t *Tracker) Boxes() []bool {
	return append([]bool(nil), t.boxes...)
}

// Toggle flips box i. Out-of-range indexes are ignored.
func (t *Tracker) Toggle(i int) {
	if i >= 0 && i < len(t.boxes) {
		t.boxes[i] = !t.boxes[i]
	}
}

// Resize rebuilds the row with max boxes, keeping the checked count.
func (t *Tracker) Resize(max int) {
	t.fill(max, t.Checked())
}

// SetChecked ticks exactly the first n boxes.
func (t *Tracker) SetChecked(n int) {
	t.fill(len(t.boxes), n)
}
