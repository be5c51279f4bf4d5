package compose

import (
	"sort"

	"deckhand/internal/model"
)

// FirstOrder is the order given to the first element of an empty slide (and the first
// slide of an empty presentation).
const FirstOrder int64 = 1

// NextOrder returns one more than the highest element order on slide, or FirstOrder when
// the slide is empty. Duplicate orders left by older clients are tolerated.
func NextOrder(slide *model.Slide) int64 {
	if slide == nil {
		return FirstOrder
	}
	max := model.UnsetOrder
	for _, e := range slide.Elements {
		if e.Order > max {
			max = e.Order
		}
	}
	if max < FirstOrder {
		return FirstOrder
	}
	return max + 1
}

// NextSlideOrder applies the same rule to the slides of a presentation.
func NextSlideOrder(slides []*model.Slide) int64 {
	max := model.UnsetOrder
	for _, s := range slides {
		if s.Order > max {
			max = s.Order
		}
	}
	if max < FirstOrder {
		return FirstOrder
	}
	return max + 1
}

func sortSlides(slides []*model.Slide) {
	sort.SliceStable(slides, func(i, j int) bool { return slides[i].Order < slides[j].Order })
}

func sortElements(elements []*model.Element) {
	sort.SliceStable(elements, func(i, j int) bool { return elements[i].Order < elements[j].Order })
}
