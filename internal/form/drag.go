package form

// Rect is the vertical extent of the item under the pointer.
type Rect struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// HoverTarget decides whether dragging the item at dragIndex over the item
// at hoverIndex, with the pointer at pointerY, commits a move. Dragging
// down commits only once the pointer is below the hovered item's midpoint;
// dragging up only once it is above. It returns the dragged item's new index.
func HoverTarget(dragIndex, hoverIndex int, hover Rect, pointerY float64) (int, bool) {
	if dragIndex == hoverIndex {
		return dragIndex, false
	}
	middle := (hover.Bottom - hover.Top) / 2
	offset := pointerY - hover.Top
	if dragIndex < hoverIndex && offset < middle {
		return dragIndex, false
	}
	if dragIndex > hoverIndex && offset > middle {
		return dragIndex, false
	}
	return hoverIndex, true
}

// DragPreview is the local reorder preview of an in-flight drag gesture.
// It is a value: Hover returns a new preview and leaves the receiver as is.
type DragPreview struct {
	origin int
	index  int
	order  []string
	start  []string
}

// NewDragPreview starts a drag of the item at index within ids.
func NewDragPreview(ids []string, index int) DragPreview {
	return DragPreview{
		origin: index,
		index:  index,
		order:  append([]string(nil), ids...),
		start:  append([]string(nil), ids...),
	}
}

// Index is the dragged item's current position in the preview.
func (p DragPreview) Index() int { return p.index }

// Order returns the previewed id order.
func (p DragPreview) Order() []string { return append([]string(nil), p.order...) }

// Hover applies one hover tick. A nil rect commits unconditionally.
func (p DragPreview) Hover(hoverIndex int, rect *Rect, pointerY float64) (DragPreview, bool) {
	if hoverIndex < 0 || hoverIndex >= len(p.order) || p.index < 0 || p.index >= len(p.order) {
		return p, false
	}
	next, ok := hoverIndex, hoverIndex != p.index
	if rect != nil {
		next, ok = HoverTarget(p.index, hoverIndex, *rect, pointerY)
	}
	if !ok {
		return p, false
	}
	order := append([]string(nil), p.order...)
	id := order[p.index]
	order = append(order[:p.index], order[p.index+1:]...)
	order = append(order[:next], append([]string{id}, order[next:]...)...)
	return DragPreview{origin: p.origin, index: next, order: order, start: p.start}, true
}

// Cancel returns the order from before the gesture started.
func (p DragPreview) Cancel() []string { return append([]string(nil), p.start...) }

// Move returns the net move the gesture produced.
func (p DragPreview) Move() (from, to int) { return p.origin, p.index }

// HoverTick is one pointer update during a drag gesture.
type HoverTick struct {
	HoverIndex int     `json:"hover_index"`
	HoverRect  *Rect   `json:"hover_rect,omitempty"`
	PointerY   float64 `json:"pointer_y,omitempty"`
}

// Gesture is a complete drag within one list.
type Gesture struct {
	DragIndex int         `json:"drag_index"`
	Ticks     []HoverTick `json:"ticks"`
	// Cancelled is set when the item was dropped outside a valid target.
	Cancelled bool `json:"cancelled,omitempty"`
}

// Preview replays the gesture over ids. A cancelled gesture yields the
// starting order.
func (g Gesture) Preview(ids []string) DragPreview {
	p := NewDragPreview(ids, g.DragIndex)
	if g.Cancelled {
		return p
	}
	for _, t := range g.Ticks {
		p, _ = p.Hover(t.HoverIndex, t.HoverRect, t.PointerY)
	}
	return p
}
