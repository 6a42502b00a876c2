package main

// SaveStatus tracks the save lifecycle of one photo slot.
type SaveStatus string

const (
	StatusIdle   SaveStatus = "idle"
	StatusSaving SaveStatus = "saving"
	StatusSaved  SaveStatus = "saved"
	StatusError  SaveStatus = "error"
)

// CropState is the adjustable crop of one photo slot. Pan is kept in
// on-screen pixel units relative to the frame center and is always
// clamped so the zoomed, cover-scaled image fully covers the frame.
type CropState struct {
	Zoom   float64 `json:"zoom"`
	Pan    Vec2    `json:"pan"`
	Filter string  `json:"filter"`
}

// ZoomRange bounds the zoom factor and supplies the default applied to a
// freshly created crop.
type ZoomRange struct {
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Default float64 `yaml:"default"`
}

type cropEntry struct {
	state     CropState
	intrinsic IntrinsicSize
	status    SaveStatus
}

// CropStore holds the crop state, intrinsic image size and save status
// for every photo slot of one editing session, keyed by slot id. The
// store does no locking of its own; it is owned by a single Session and
// mutated only under the session lock. Every mutation re-clamps pan, so
// the cover invariant holds after every operation.
type CropStore struct {
	frame   float64
	zoom    ZoomRange
	entries map[string]*cropEntry
}

// NewCropStore creates an empty store for a display frame of the given
// side length.
func NewCropStore(frame float64, zoom ZoomRange) *CropStore {
	return &CropStore{
		frame:   frame,
		zoom:    zoom,
		entries: make(map[string]*cropEntry),
	}
}

// Frame returns the current display frame side length.
func (s *CropStore) Frame() float64 {
	return s.frame
}

// Create installs default crop state for a slot, replacing any previous
// entry. Called when a slot is added, when a new file is applied and
// when a slot is cleared.
func (s *CropStore) Create(id string) {
	s.entries[id] = &cropEntry{
		state: CropState{
			Zoom:   s.zoom.Default,
			Filter: FilterOriginal,
		},
		status: StatusIdle,
	}
}

// Remove drops a slot's entry entirely.
func (s *CropStore) Remove(id string) {
	delete(s.entries, id)
}

// Get returns the crop state for a slot.
func (s *CropStore) Get(id string) (CropState, bool) {
	e, ok := s.entries[id]
	if !ok {
		return CropState{}, false
	}
	return e.state, true
}

// Status returns the save status for a slot; missing slots read as idle.
func (s *CropStore) Status(id string) SaveStatus {
	if e, ok := s.entries[id]; ok {
		return e.status
	}
	return StatusIdle
}

// Intrinsic returns the captured source dimensions for a slot.
func (s *CropStore) Intrinsic(id string) IntrinsicSize {
	if e, ok := s.entries[id]; ok {
		return e.intrinsic
	}
	return IntrinsicSize{}
}

// SetFrame records a new display frame size and re-clamps every entry
// against it. Callers must report frame changes promptly or clamping
// drifts out of sync with what the user sees.
func (s *CropStore) SetFrame(frame float64) {
	s.frame = frame
	for _, e := range s.entries {
		s.reclamp(e)
	}
}

// SetIntrinsic records the source dimensions once a loaded image is
// measured and immediately re-clamps the current pan, since the cover
// metrics depend on them.
func (s *CropStore) SetIntrinsic(id string, size IntrinsicSize) {
	e, ok := s.entries[id]
	if !ok {
		return
	}
	e.intrinsic = size
	s.reclamp(e)
}

// SetZoom clamps the requested zoom into range, re-clamps pan against
// the new rendered size and demotes a saved slot back to idle.
func (s *CropStore) SetZoom(id string, zoom float64) {
	e, ok := s.entries[id]
	if !ok {
		return
	}
	e.state.Zoom = clampFloat(zoom, s.zoom.Min, s.zoom.Max)
	s.reclamp(e)
	s.demote(e)
}

// SetPan applies a clamped pan and demotes a saved slot back to idle.
func (s *CropStore) SetPan(id string, pan Vec2) {
	e, ok := s.entries[id]
	if !ok {
		return
	}
	e.state.Pan = pan
	s.reclamp(e)
	s.demote(e)
}

// SetFilter switches the active preset and demotes a saved slot back to
// idle.
func (s *CropStore) SetFilter(id string, filter string) error {
	e, ok := s.entries[id]
	if !ok {
		return ErrSlotNotFound
	}
	if _, ok := FilterByID(filter); !ok {
		return ErrUnknownFilter
	}
	e.state.Filter = filter
	s.demote(e)
	return nil
}

// Reset restores the default zoom, pan and filter. The intrinsic size
// and save status are left alone; resetting an unsaved crop does not
// invent a save, and resetting a saved one is an edit like any other.
func (s *CropStore) Reset(id string) {
	e, ok := s.entries[id]
	if !ok {
		return
	}
	e.state = CropState{Zoom: s.zoom.Default, Filter: FilterOriginal}
	s.reclamp(e)
	s.demote(e)
}

// BeginSave transitions a slot into saving. It reports false when the
// slot is missing or a save is already in flight, which makes a second
// save request a no-op until the first completes.
func (s *CropStore) BeginSave(id string) bool {
	e, ok := s.entries[id]
	if !ok || e.status == StatusSaving {
		return false
	}
	e.status = StatusSaving
	return true
}

// CompleteSave marks a successful export. It reports whether the
// transition happened: a slot that was cleared, replaced or removed
// while the export ran is no longer saving, and a late completion must
// not resurrect its artifact.
func (s *CropStore) CompleteSave(id string) bool {
	e, ok := s.entries[id]
	if !ok || e.status != StatusSaving {
		return false
	}
	e.status = StatusSaved
	return true
}

// FailSave marks a failed export.
func (s *CropStore) FailSave(id string) {
	if e, ok := s.entries[id]; ok && e.status == StatusSaving {
		e.status = StatusError
	}
}

// ClearError auto-recovers a failed slot back to idle so the save
// control becomes actionable again.
func (s *CropStore) ClearError(id string) {
	if e, ok := s.entries[id]; ok && e.status == StatusError {
		e.status = StatusIdle
	}
}

// Recover resets a stale saving status to idle. A status of saving is
// transient; finding one on session (re)entry means a save was abandoned
// mid-flight.
func (s *CropStore) Recover() {
	for _, e := range s.entries {
		if e.status == StatusSaving {
			e.status = StatusIdle
		}
	}
}

func (s *CropStore) reclamp(e *cropEntry) {
	rendered := RenderedSize(CoverSize(s.frame, e.intrinsic), e.state.Zoom)
	e.state.Pan = ClampPan(s.frame, rendered, e.state.Pan)
}

// demote invalidates a prior save: any crop edit while the status is
// saved drops it back to idle in the same update.
func (s *CropStore) demote(e *cropEntry) {
	if e.status == StatusSaved {
		e.status = StatusIdle
	}
}
