package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/rs/zerolog/log"
)

//go:embed static
var staticFS embed.FS
var isDebug = os.Getenv("DEBUG") == "1"

// WebConfig wires the editor session and its collaborators into the
// HTTP layer.
type WebConfig struct {
	Session          *Session
	Writer           *TileWriter
	Editor           Config
	OnReady          func(addr string)
	OnBeforeShutdown func()
	OnFinalized      func(tiles []SavedTile)
}

// WebApp serves the embedded editor frontend and the session API.
type WebApp struct {
	config       WebConfig
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewWebApp creates a WebApp around a session.
func NewWebApp(config WebConfig) *WebApp {
	return &WebApp{
		config:     config,
		shutdownCh: make(chan struct{}),
	}
}

// Shutdown requests a graceful stop; safe to call more than once.
func (a *WebApp) Shutdown() {
	a.shutdownOnce.Do(func() {
		close(a.shutdownCh)
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSlotNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrDecodeFailure), errors.Is(err, ErrNoPhoto),
		errors.Is(err, ErrUnknownFilter), errors.Is(err, ErrLastSlot):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Run serves until the context is cancelled or Shutdown is called.
func (a *WebApp) Run(ctx context.Context) error {
	webapp := a.router()

	webapp.Hooks().OnListen(func(listen fiber.ListenData) error {
		if fn := a.config.OnReady; fn != nil {
			fn(fmt.Sprintf("http://%s:%s", listen.Host, listen.Port))
		}
		return nil
	})

	go func() {
		select {
		case <-ctx.Done():
		case <-a.shutdownCh:
		}
		if fn := a.config.OnBeforeShutdown; fn != nil {
			fn()
		}
		if err := webapp.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to shutdown web application")
		}
	}()

	// Let the OS assign a random available port
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", 0))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	if err := webapp.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// router builds the fiber app with every API route and the static
// frontend. Kept separate from Run so tests can drive it in-process.
func (a *WebApp) router() *fiber.App {
	session := a.config.Session

	webapp := fiber.New(fiber.Config{
		Immutable:             true,
		DisableStartupMessage: true,
		BodyLimit:             int(a.config.Editor.MaxUploadBytes) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Ctx(c.Context()).Error().
				Err(err).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("Request failed")
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				if fiberErr.Code == http.StatusNotFound && c.Path() == "/favicon.ico" {
					return nil
				}
				return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
			}
			return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
		},
	})

	webapp.Get("/api/session", func(c *fiber.Ctx) error {
		return c.JSON(a.sessionView())
	})

	webapp.Post("/api/recover", func(c *fiber.Ctx) error {
		session.Recover()
		return c.JSON(a.sessionView())
	})

	webapp.Post("/api/frame", func(c *fiber.Ctx) error {
		var request struct {
			Size float64 `json:"size"`
		}
		if err := c.BodyParser(&request); err != nil {
			return err
		}
		if err := session.SetFrameSize(request.Size); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return c.SendStatus(http.StatusNoContent)
	})

	webapp.Post("/api/slots", func(c *fiber.Ctx) error {
		id := session.AddSlot()
		return c.Status(http.StatusCreated).JSON(fiber.Map{"id": id})
	})

	webapp.Delete("/api/slots/:id", func(c *fiber.Ctx) error {
		if err := session.RemoveSlot(c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(http.StatusNoContent)
	})

	webapp.Post("/api/slots/:id/clear", func(c *fiber.Ctx) error {
		if err := session.ClearSlot(c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(http.StatusNoContent)
	})

	webapp.Post("/api/slots/:id/photo", func(c *fiber.Ctx) error {
		id := c.Params("id")
		header, err := c.FormFile("photo")
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "missing photo field")
		}
		f, err := header.Open()
		if err != nil {
			return fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return fmt.Errorf("failed to read upload: %w", err)
		}

		session.EnableInteractions(false)
		defer session.EnableInteractions(true)
		if err := session.AttachPhoto(id, header.Filename, data); err != nil {
			return err
		}
		return a.slotResponse(c, id)
	})

	webapp.Post("/api/slots/:id/zoom", func(c *fiber.Ctx) error {
		var request struct {
			Zoom float64 `json:"zoom"`
		}
		if err := c.BodyParser(&request); err != nil {
			return err
		}
		id := c.Params("id")
		if err := session.SetZoom(id, request.Zoom); err != nil {
			return err
		}
		return a.slotResponse(c, id)
	})

	webapp.Post("/api/slots/:id/pan", func(c *fiber.Ctx) error {
		var request Vec2
		if err := c.BodyParser(&request); err != nil {
			return err
		}
		id := c.Params("id")
		if err := session.SetPan(id, request); err != nil {
			return err
		}
		return a.slotResponse(c, id)
	})

	webapp.Post("/api/slots/:id/filter", func(c *fiber.Ctx) error {
		var request struct {
			Filter string `json:"filter"`
		}
		if err := c.BodyParser(&request); err != nil {
			return err
		}
		id := c.Params("id")
		if err := session.SetFilter(id, request.Filter); err != nil {
			return err
		}
		return a.slotResponse(c, id)
	})

	webapp.Post("/api/slots/:id/reset", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := session.ResetCrop(id); err != nil {
			return err
		}
		return a.slotResponse(c, id)
	})

	webapp.Post("/api/slots/:id/pointer", func(c *fiber.Ctx) error {
		var request struct {
			Phase string  `json:"phase"`
			X     float64 `json:"x"`
			Y     float64 `json:"y"`
		}
		if err := c.BodyParser(&request); err != nil {
			return err
		}
		id := c.Params("id")
		pos := Vec2{X: request.X, Y: request.Y}

		var dragging bool
		switch request.Phase {
		case "down":
			if err := session.PointerDown(id, pos); err != nil {
				return err
			}
		case "move":
			var err error
			if _, dragging, err = session.PointerMove(id, pos); err != nil {
				return err
			}
		case "up":
			session.PointerUp()
		case "cancel":
			session.PointerCancel()
		default:
			return fiber.NewError(http.StatusBadRequest, "unknown pointer phase")
		}

		state, err := session.CropOf(id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"pan":           state.Pan,
			"dragging":      dragging,
			"click_allowed": session.ClickAllowed(),
		})
	})

	webapp.Get("/api/slots/:id/preview", func(c *fiber.Ctx) error {
		preview, err := session.Preview(c.Params("id"))
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "image/jpeg")
		return c.Send(preview)
	})

	webapp.Post("/api/slots/:id/save", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := session.Save(c.Context(), id); err != nil {
			return err
		}
		next, hasNext := session.NextUnsaved()
		return c.JSON(fiber.Map{
			"status":       session.Status(id),
			"next_unsaved": next,
			"has_next":     hasNext,
			"all_saved":    session.AllSaved(),
		})
	})

	webapp.Post("/api/finalize", func(c *fiber.Ctx) error {
		tiles := session.Finalize()
		if a.config.Writer != nil {
			if err := a.config.Writer.Write(c.Context(), tiles); err != nil {
				return err
			}
		}
		if fn := a.config.OnFinalized; fn != nil {
			fn(tiles)
		}
		return c.JSON(fiber.Map{"tiles": tiles, "all_saved": session.AllSaved()})
	})

	webapp.Post("/api/shutdown", func(c *fiber.Ctx) error {
		a.Shutdown()
		return nil
	})

	if isDebug {
		log.Debug().Msg("Debug mode enabled, serving static files from './static' directory")
		webapp.Static("/", "static")
	} else {
		log.Debug().Msg("Serving static files from embedded filesystem")
		webapp.Use("/", filesystem.New(filesystem.Config{
			Root:       http.FS(staticFS),
			PathPrefix: "/static",
		}))
	}

	return webapp
}

type slotView struct {
	ID        string           `json:"id"`
	FileName  string           `json:"file_name,omitempty"`
	HasImage  bool             `json:"has_image"`
	IsCropped bool             `json:"is_cropped"`
	Status    SaveStatus       `json:"status"`
	Crop      CropState        `json:"crop"`
	Display   DisplayTransform `json:"display"`
}

type sessionView struct {
	Slots       []slotView `json:"slots"`
	NextUnsaved string     `json:"next_unsaved,omitempty"`
	AllSaved    bool       `json:"all_saved"`
	Filters     []string   `json:"filters"`
}

func (a *WebApp) sessionView() sessionView {
	session := a.config.Session
	var view sessionView
	for _, slot := range session.Slots() {
		view.Slots = append(view.Slots, a.slotView(slot))
	}
	view.NextUnsaved, _ = session.NextUnsaved()
	view.AllSaved = session.AllSaved()
	view.Filters = FilterIDs()
	return view
}

func (a *WebApp) slotView(slot *PhotoSlot) slotView {
	session := a.config.Session
	crop, _ := session.CropOf(slot.ID)
	display, _ := session.Display(slot.ID)
	return slotView{
		ID:        slot.ID,
		FileName:  slot.FileName,
		HasImage:  slot.HasImage(),
		IsCropped: slot.IsCropped,
		Status:    session.Status(slot.ID),
		Crop:      crop,
		Display:   display,
	}
}

func (a *WebApp) slotResponse(c *fiber.Ctx, id string) error {
	for _, slot := range a.config.Session.Slots() {
		if slot.ID == id {
			return c.JSON(a.slotView(slot))
		}
	}
	return ErrSlotNotFound
}
