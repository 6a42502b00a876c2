package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// PhotoSlot is one upload position in the order being edited. The source
// bytes are a transient in-session handle and are released whenever they
// are superseded or the slot is cleared; the preview holds the rasterized
// square artifact from the last successful save.
type PhotoSlot struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name,omitempty"`
	IsCropped bool   `json:"is_cropped"`

	source  []byte
	preview []byte
}

// HasImage reports whether a photo has been applied to the slot.
func (s *PhotoSlot) HasImage() bool {
	return len(s.source) > 0
}

// SavedTile is one finalized slot handed to the order collaborator.
type SavedTile struct {
	SlotID       string  `json:"slot_id"`
	FileName     string  `json:"file_name,omitempty"`
	Zoom         float64 `json:"zoom"`
	Pan          Vec2    `json:"pan"`
	Filter       string  `json:"filter"`
	ArtifactPath string  `json:"artifact,omitempty"`

	Artifact []byte `json:"-"`
}

// Session owns the full editing state of one editor instance: the slot
// collection, the per-slot crop store, the active pointer machine and
// the export pipeline. It is an explicit object rather than package
// state so multiple sessions never share anything.
//
// All exported methods are safe for concurrent use. The session lock
// serializes mutations, so per-slot changes apply in arrival order; the
// lock is not held across renders, and non-reentrancy of saves comes
// from the saving status itself.
type Session struct {
	cfg      Config
	renderer Renderer

	mu          sync.Mutex
	slots       []*PhotoSlot
	store       *CropStore
	pointer     *PointerMachine
	pointerSlot string
	disabled    int
}

// NewSession creates a session with a single empty slot.
func NewSession(cfg Config, renderer Renderer) *Session {
	s := &Session{
		cfg:      cfg,
		renderer: renderer,
		store:    NewCropStore(cfg.FrameSize, cfg.Zoom),
		pointer:  NewPointerMachine(cfg.DragThreshold, cfg.ClickSuppress()),
	}
	s.addSlotLocked()
	return s
}

func (s *Session) addSlotLocked() *PhotoSlot {
	slot := &PhotoSlot{ID: uuid.NewString()}
	s.slots = append(s.slots, slot)
	s.store.Create(slot.ID)
	return slot
}

func (s *Session) findSlot(id string) *PhotoSlot {
	for _, slot := range s.slots {
		if slot.ID == id {
			return slot
		}
	}
	return nil
}

// AddSlot appends a new empty slot and returns its id.
func (s *Session) AddSlot() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addSlotLocked().ID
}

// RemoveSlot deletes a slot and its crop state. The last remaining slot
// cannot be removed; clear it instead.
func (s *Session) RemoveSlot(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.slots) <= 1 {
		return ErrLastSlot
	}
	for i, slot := range s.slots {
		if slot.ID == id {
			slot.source = nil
			slot.preview = nil
			s.slots = append(s.slots[:i], s.slots[i+1:]...)
			s.store.Remove(id)
			return nil
		}
	}
	return ErrSlotNotFound
}

// ClearSlot removes the photo from a slot, returning it to empty. The
// source and preview handles are released and the crop state goes back
// to defaults with no intrinsic size.
func (s *Session) ClearSlot(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := s.findSlot(id)
	if slot == nil {
		return ErrSlotNotFound
	}
	slot.source = nil
	slot.preview = nil
	slot.FileName = ""
	slot.IsCropped = false
	s.store.Create(id)
	return nil
}

// AttachPhoto validates an upload and applies it to a slot. Validation
// failures leave the slot untouched. A successful attach supersedes any
// previous photo, resets the crop state to defaults and clamps it
// against the freshly captured intrinsic size.
func (s *Session) AttachPhoto(id, fileName string, data []byte) error {
	intrinsic, err := ValidateUpload(data, s.cfg.MaxUploadBytes)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	slot := s.findSlot(id)
	if slot == nil {
		return ErrSlotNotFound
	}
	slot.source = data
	slot.preview = nil
	slot.FileName = fileName
	slot.IsCropped = false
	s.store.Create(id)
	s.store.SetIntrinsic(id, intrinsic)
	log.Debug().Str("slot", id).Str("file", fileName).
		Int("width", intrinsic.Width).Int("height", intrinsic.Height).
		Msg("photo attached")
	return nil
}

// SetFrameSize records a display frame resize and re-clamps every crop.
func (s *Session) SetFrameSize(frame float64) error {
	if frame <= 0 {
		return fmt.Errorf("frame size must be positive, got %g", frame)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetFrame(frame)
	return nil
}

// EnableInteractions adjusts the global interaction gate. The web layer
// disables interactions while an upload or load phase is in flight.
// Disables nest: every EnableInteractions(false) must be paired with an
// EnableInteractions(true), and interactions stay off until the last
// in-flight phase re-enables them.
func (s *Session) EnableInteractions(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		if s.disabled > 0 {
			s.disabled--
		}
	} else {
		s.disabled++
	}
}

// SetZoom adjusts a slot's zoom. The store clamps the value and re-clamps
// pan.
func (s *Session) SetZoom(id string, zoom float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requirePhoto(id); err != nil {
		return err
	}
	s.store.SetZoom(id, zoom)
	return nil
}

// SetPan adjusts a slot's pan; the store clamps it.
func (s *Session) SetPan(id string, pan Vec2) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requirePhoto(id); err != nil {
		return err
	}
	s.store.SetPan(id, pan)
	return nil
}

// SetFilter switches a slot's filter preset.
func (s *Session) SetFilter(id, filter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requirePhoto(id); err != nil {
		return err
	}
	return s.store.SetFilter(id, filter)
}

// ResetCrop restores a slot's default zoom, pan and filter.
func (s *Session) ResetCrop(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requirePhoto(id); err != nil {
		return err
	}
	s.store.Reset(id)
	return nil
}

func (s *Session) requirePhoto(id string) error {
	slot := s.findSlot(id)
	if slot == nil {
		return ErrSlotNotFound
	}
	if !slot.HasImage() {
		return ErrNoPhoto
	}
	return nil
}

// CropOf returns a slot's current crop state.
func (s *Session) CropOf(id string) (CropState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.store.Get(id)
	if !ok {
		return CropState{}, ErrSlotNotFound
	}
	return state, nil
}

// Display returns the on-screen transform for a slot.
func (s *Session) Display(id string) (DisplayTransform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.store.Get(id)
	if !ok {
		return DisplayTransform{}, ErrSlotNotFound
	}
	return DisplayFor(s.store.Frame(), s.store.Intrinsic(id), state), nil
}

// PointerDown starts a drag session over a slot. It is refused when the
// slot is empty or interactions are disabled, matching the frame's
// pointer-down gate.
func (s *Session) PointerDown(id string, pos Vec2) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled > 0 {
		return fmt.Errorf("interactions are disabled")
	}
	if err := s.requirePhoto(id); err != nil {
		return err
	}
	state, _ := s.store.Get(id)
	s.pointer.Press(pos, state.Pan)
	s.pointerSlot = id
	return nil
}

// PointerMove feeds a pointer position. Once the drag threshold is
// crossed the slot's pan follows the pointer; the clamped pan and the
// dragging flag are returned. Moves for a slot other than the pressed
// one are ignored, so one drag session can never pan another slot with
// its anchor.
func (s *Session) PointerMove(id string, pos Vec2) (Vec2, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.store.Get(id)
	if !ok {
		return Vec2{}, false, ErrSlotNotFound
	}
	if id != s.pointerSlot {
		return state.Pan, false, nil
	}
	next, dragging := s.pointer.Move(pos)
	if dragging {
		s.store.SetPan(id, next)
		state, _ = s.store.Get(id)
	}
	return state.Pan, dragging, nil
}

// PointerUp ends a drag session; a session that dragged arms the click
// suppression window.
func (s *Session) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointer.Release()
	s.pointerSlot = ""
}

// PointerCancel ends a drag session without arming suppression.
func (s *Session) PointerCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointer.Cancel()
	s.pointerSlot = ""
}

// ClickAllowed reports whether a click on the frame should be honored.
func (s *Session) ClickAllowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pointer.ClickAllowed()
}

// Save exports a slot's current crop into its preview artifact. A save
// already in flight for the slot makes this a no-op. On failure the
// status goes to error and auto-recovers to idle after the configured
// delay; the previous preview, if any, is left untouched.
func (s *Session) Save(ctx context.Context, id string) error {
	s.mu.Lock()
	slot := s.findSlot(id)
	if slot == nil {
		s.mu.Unlock()
		return ErrSlotNotFound
	}
	if !slot.HasImage() {
		s.mu.Unlock()
		return ErrNoPhoto
	}
	if !s.store.BeginSave(id) {
		s.mu.Unlock()
		log.Ctx(ctx).Debug().Str("slot", id).Msg("save already in flight")
		return nil
	}
	state, _ := s.store.Get(id)
	source := slot.source
	job := RenderJob{
		Frame:      s.store.Frame(),
		OutputSize: s.cfg.OutputSize,
		Quality:    s.cfg.JPEGQuality,
		State:      state,
	}
	s.mu.Unlock()

	log.Ctx(ctx).Debug().Str("slot", id).
		Float64("zoom", state.Zoom).Str("filter", state.Filter).
		Msg("exporting crop")

	var buf bytes.Buffer
	if err := s.renderer.Render(ctx, bytes.NewReader(source), &buf, job); err != nil {
		s.mu.Lock()
		s.store.FailSave(id)
		s.mu.Unlock()
		time.AfterFunc(s.cfg.ErrorRevert(), func() {
			s.mu.Lock()
			s.store.ClearError(id)
			s.mu.Unlock()
		})
		return fmt.Errorf("failed to save slot %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The slot may have been removed, cleared or given a new photo while
	// the render ran; only a still-saving slot accepts the artifact.
	if s.store.CompleteSave(id) {
		if slot := s.findSlot(id); slot != nil {
			slot.preview = buf.Bytes()
			slot.IsCropped = true
		}
	}
	return nil
}

// Recover resets any stale saving status to idle. Called on editor
// (re)entry; saving is transient and must never stick across visits.
func (s *Session) Recover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Recover()
}

// Status returns a slot's save status.
func (s *Session) Status(id string) SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Status(id)
}

// Preview returns a slot's saved artifact bytes.
func (s *Session) Preview(id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := s.findSlot(id)
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	if len(slot.preview) == 0 {
		return nil, fmt.Errorf("%w: no preview saved", ErrSlotNotFound)
	}
	return slot.preview, nil
}

// NextUnsaved scans the live statuses, in slot order, for the first slot
// that has a photo but is not saved. It always reads current state; no
// snapshot survives from before a save completed.
func (s *Session) NextUnsaved() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range s.slots {
		if slot.HasImage() && s.store.Status(slot.ID) != StatusSaved {
			return slot.ID, true
		}
	}
	return "", false
}

// AllSaved reports whether every slot that has a photo is saved. A
// session with no photos reads as saved; checkout eligibility beyond
// that is the caller's decision.
func (s *Session) AllSaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range s.slots {
		if slot.HasImage() && s.store.Status(slot.ID) != StatusSaved {
			return false
		}
	}
	return true
}

// Finalize collects the saved tiles for the order collaborator: one
// tuple per slot with status saved, each carrying the artifact bytes and
// the crop parameters that produced it.
func (s *Session) Finalize() []SavedTile {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tiles []SavedTile
	for _, slot := range s.slots {
		if s.store.Status(slot.ID) != StatusSaved || len(slot.preview) == 0 {
			continue
		}
		state, _ := s.store.Get(slot.ID)
		tiles = append(tiles, SavedTile{
			SlotID:   slot.ID,
			FileName: slot.FileName,
			Zoom:     state.Zoom,
			Pan:      state.Pan,
			Filter:   state.Filter,
			Artifact: slot.preview,
		})
	}
	return tiles
}

// Slots returns the slot list in order. The returned pointers are live;
// callers must not retain them across mutations.
func (s *Session) Slots() []*PhotoSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*PhotoSlot, len(s.slots))
	copy(out, s.slots)
	return out
}

// TileWriter persists finalized tiles to an output directory: one JPEG
// per slot plus a JSONL manifest for the order collaborator.
type TileWriter struct {
	OutputDir string
}

// Write stores every tile's artifact and then the manifest. Artifact
// writes run in a bounded pool; the manifest is written only after all
// of them succeed.
func (w *TileWriter) Write(ctx context.Context, tiles []SavedTile) error {
	if len(tiles) == 0 {
		log.Ctx(ctx).Warn().Msg("no saved tiles to write")
		return nil
	}
	if err := os.MkdirAll(w.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", w.OutputDir, err)
	}

	for i := range tiles {
		tiles[i].ArtifactPath = filepath.Join(w.OutputDir, tiles[i].SlotID+".jpg")
	}

	pooler := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(runtime.NumCPU())
	for _, tile := range tiles {
		pooler.Go(func(ctx context.Context) error {
			log.Ctx(ctx).Info().Str("slot", tile.SlotID).Str("path", tile.ArtifactPath).Msg("writing tile")
			if err := os.WriteFile(tile.ArtifactPath, tile.Artifact, 0644); err != nil {
				return fmt.Errorf("failed to write tile %s: %w", tile.SlotID, err)
			}
			return nil
		})
	}
	if err := pooler.Wait(); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("finished with errors")
		return err
	}

	manifestPath := filepath.Join(w.OutputDir, "order.jsonl")
	f, err := os.Create(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to create manifest %s: %w", manifestPath, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, tile := range tiles {
		if err := enc.Encode(tile); err != nil {
			return fmt.Errorf("failed to encode manifest entry %s: %w", tile.SlotID, err)
		}
	}
	return nil
}
