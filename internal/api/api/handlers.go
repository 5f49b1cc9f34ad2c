package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"mttsite/internal/docstore"
	"mttsite/internal/dto"
	"mttsite/internal/imageupload"
	"mttsite/internal/resilient"
	"mttsite/internal/service"
	"mttsite/pkg/validator"
)

type handlers struct {
	svc service.Service
	log *zerolog.Logger
}

func (h *handlers) Health(c *ginext.Context) {
	dto.SuccessResponse(c, map[string]string{"status": "up"})
}

// fail maps service errors onto the response envelope.
func (h *handlers) fail(c *ginext.Context, err error, what string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		var fe validator.Errors
		if errors.As(err, &fe) {
			fields := make(map[string]string, len(fe))
			for _, f := range fe {
				fields[f.Field] = f.Message
			}
			dto.ValidationError(c, fe.Error(), fields)
			return
		}
		dto.BadResponseError(c, dto.FieldIncorrect, err.Error())
	case errors.Is(err, service.ErrNotFound):
		dto.NotFoundError(c, what)
	case errors.Is(err, service.ErrRegistrationClosed):
		dto.BadResponseError(c, dto.FieldIncorrect, "Registration is closed for this event")
	case errors.Is(err, service.ErrInvalidCredentials):
		dto.UnauthorizedError(c, "Invalid email or password")
	case errors.Is(err, service.ErrEmailTaken):
		dto.ConflictError(c, "Email is already registered")
	case errors.Is(err, imageupload.ErrInvalidFile), errors.Is(err, imageupload.ErrFileTooLarge):
		dto.BadResponseError(c, dto.FieldIncorrect, err.Error())
	case errors.Is(err, imageupload.ErrMissingConfig):
		dto.ErrorResponse(c, http.StatusInternalServerError, dto.UploadConfig, "Image upload is not configured")
	case errors.Is(err, imageupload.ErrUploadRejected):
		dto.ErrorResponse(c, http.StatusBadGateway, dto.UploadFailed, "Image upload failed")
	case errors.Is(err, docstore.ErrUnavailable):
		dto.UnavailableError(c)
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		dto.InternalServerError(c)
	}
}

func written(c *ginext.Context, status int, res resilient.WriteResult, record any) {
	c.JSON(status, dto.Response{
		Status: "ok",
		Data:   dto.WriteResponse{ID: res.ID, SavedOffline: res.Queued, Record: record},
	})
}

func bindJSON(c *ginext.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		dto.BadResponseError(c, dto.FieldIncorrect, "Invalid JSON format")
		return false
	}
	return true
}

func bindQuery(c *ginext.Context, v any) bool {
	if err := c.ShouldBindQuery(v); err != nil {
		dto.BadResponseError(c, dto.FieldBadFormat, "Invalid query parameters")
		return false
	}
	return true
}

func (h *handlers) ListEvents(c *ginext.Context) {
	var f dto.EventFilter
	if !bindQuery(c, &f) {
		return
	}
	events, err := h.svc.ListEvents(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err, "Events")
		return
	}
	dto.SuccessResponse(c, events)
}

func (h *handlers) GetEvent(c *ginext.Context) {
	event, err := h.svc.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Event")
		return
	}
	if event == nil {
		dto.NotFoundError(c, "Event")
		return
	}
	dto.SuccessResponse(c, event)
}

func (h *handlers) CreateEvent(c *ginext.Context) {
	var req dto.EventRequest
	if !bindJSON(c, &req) {
		return
	}
	event, res, err := h.svc.CreateEvent(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "Event")
		return
	}
	written(c, http.StatusCreated, res, event)
}

func (h *handlers) UpdateEvent(c *ginext.Context) {
	var req dto.EventRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.UpdateEvent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err, "Event")
		return
	}
	written(c, http.StatusOK, res, nil)
}

func (h *handlers) DeleteEvent(c *ginext.Context) {
	res, err := h.svc.DeleteEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Event")
		return
	}
	written(c, http.StatusOK, res, nil)
}

// Register signs an attendee up for the event in the path.
func (h *handlers) Register(c *ginext.Context) {
	var req dto.RegistrationRequest
	if !bindJSON(c, &req) {
		return
	}
	reg, res, err := h.svc.CreateRegistration(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err, "Event")
		return
	}
	written(c, http.StatusCreated, res, reg)
}

func (h *handlers) ListRegistrations(c *ginext.Context) {
	var f dto.RegistrationFilter
	if !bindQuery(c, &f) {
		return
	}
	regs, err := h.svc.ListRegistrations(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err, "Registrations")
		return
	}
	dto.SuccessResponse(c, regs)
}

func (h *handlers) GetRegistration(c *ginext.Context) {
	reg, err := h.svc.GetRegistration(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Registration")
		return
	}
	if reg == nil {
		dto.NotFoundError(c, "Registration")
		return
	}
	dto.SuccessResponse(c, reg)
}

func (h *handlers) UpdateRegistration(c *ginext.Context) {
	var upd dto.RegistrationUpdate
	if !bindJSON(c, &upd) {
		return
	}
	res, err := h.svc.UpdateRegistration(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		h.fail(c, err, "Registration")
		return
	}
	written(c, http.StatusOK, res, nil)
}

func (h *handlers) DeleteRegistration(c *ginext.Context) {
	res, err := h.svc.DeleteRegistration(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Registration")
		return
	}
	written(c, http.StatusOK, res, nil)
}

func (h *handlers) ExportRegistrations(c *ginext.Context) {
	var f dto.RegistrationFilter
	if !bindQuery(c, &f) {
		return
	}
	var buf bytes.Buffer
	if err := h.svc.ExportRegistrationsCSV(c.Request.Context(), &buf, f); err != nil {
		h.fail(c, err, "Registrations")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="registrations.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *handlers) ListPublishedBlogs(c *ginext.Context) {
	h.listBlogs(c, true)
}

func (h *handlers) ListAllBlogs(c *ginext.Context) {
	h.listBlogs(c, false)
}

func (h *handlers) listBlogs(c *ginext.Context, publishedOnly bool) {
	var f dto.BlogFilter
	if !bindQuery(c, &f) {
		return
	}
	blogs, err := h.svc.ListBlogs(c.Request.Context(), publishedOnly, f)
	if err != nil {
		h.fail(c, err, "Blogs")
		return
	}
	dto.SuccessResponse(c, blogs)
}

func (h *handlers) GetBlogBySlug(c *ginext.Context) {
	blog, err := h.svc.GetBlogBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err, "Blog post")
		return
	}
	if blog == nil {
		dto.NotFoundError(c, "Blog post")
		return
	}
	dto.SuccessResponse(c, blog)
}

func (h *handlers) GetBlog(c *ginext.Context) {
	blog, err := h.svc.GetBlog(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Blog post")
		return
	}
	if blog == nil {
		dto.NotFoundError(c, "Blog post")
		return
	}
	dto.SuccessResponse(c, blog)
}

func (h *handlers) CreateBlog(c *ginext.Context) {
	var req dto.BlogRequest
	if !bindJSON(c, &req) {
		return
	}
	blog, res, err := h.svc.CreateBlog(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "Blog post")
		return
	}
	written(c, http.StatusCreated, res, blog)
}

func (h *handlers) UpdateBlog(c *ginext.Context) {
	var req dto.BlogRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.UpdateBlog(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err, "Blog post")
		return
	}
	written(c, http.StatusOK, res, nil)
}

func (h *handlers) DeleteBlog(c *ginext.Context) {
	res, err := h.svc.DeleteBlog(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Blog post")
		return
	}
	written(c, http.StatusOK, res, nil)
}

func (h *handlers) SignUp(c *ginext.Context) {
	var req dto.SignUpRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "User")
		return
	}
	dto.SuccessCreatedResponse(c, user)
}

func (h *handlers) Login(c *ginext.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	tok, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "User")
		return
	}
	dto.SuccessResponse(c, tok)
}

// UploadImage expects a multipart form with the image in the "file" field.
func (h *handlers) UploadImage(c *ginext.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		dto.FieldBadFormatError(c, "file")
		return
	}
	if fh.Size > imageupload.MaxSize {
		h.fail(c, imageupload.ErrFileTooLarge, "Image")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err, "Image")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, imageupload.MaxSize+1))
	if err != nil {
		h.fail(c, err, "Image")
		return
	}
	url, err := h.svc.UploadImage(c.Request.Context(), fh.Filename, data)
	if err != nil {
		h.fail(c, err, "Image")
		return
	}
	dto.SuccessCreatedResponse(c, dto.ImageResponse{URL: url})
}
