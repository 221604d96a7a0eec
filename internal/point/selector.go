package point

import "sync"

// Touch is one contact point of a touch event, in viewport pixels.
type Touch struct {
	ClientX float64
	ClientY float64
}

// Outcome tells the caller what a handled event did.
type Outcome struct {
	// Selected is true when the event replaced the pending selection.
	Selected bool
	// SuppressDefault is true when the platform's scroll or zoom gesture must be cancelled.
	SuppressDefault bool
}

// Selector tracks the pending point for one point-selector question.
type Selector struct {
	mu       sync.Mutex
	box      Box
	loaded   bool
	selected *Selection
}

// NewSelector returns a selector whose image has not loaded yet.
func NewSelector() *Selector {
	return &Selector{}
}

// Load records the rendered box once the image has loaded or been resized.
// A box that is not ready leaves the selector unloaded.
func (s *Selector) Load(box Box) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.box = box
	s.loaded = box.Ready()
}

// Loaded reports whether pointer events are currently accepted.
func (s *Selector) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Pointer handles a mouse or pen event at a viewport position.
func (s *Selector) Pointer(clientX, clientY float64) Outcome {
	return Outcome{Selected: s.selectAt(clientX, clientY)}
}

// Touch handles a touch start using the first contact point. The default
// gesture is suppressed even when the event itself is ignored.
func (s *Selector) Touch(touches []Touch) Outcome {
	out := Outcome{SuppressDefault: true}
	if len(touches) == 0 {
		return out
	}
	out.Selected = s.selectAt(touches[0].ClientX, touches[0].ClientY)
	return out
}

// Selection returns the pending selection, if any.
func (s *Selector) Selection() (Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return Selection{}, false
	}
	return *s.selected, true
}

// Reset drops the pending selection and forgets the box.
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.box = Box{}
	s.loaded = false
	s.selected = nil
}

func (s *Selector) selectAt(clientX, clientY float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return false
	}
	px, err := Locate(clientX, clientY, s.box)
	if err != nil {
		return false
	}
	s.selected = &Selection{Pixel: px, Box: s.box}
	return true
}
