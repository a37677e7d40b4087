package server

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"

	"chatrelay/internal/core"
	"chatrelay/internal/extractor"
	"chatrelay/internal/landing"
	"chatrelay/internal/prompt"
	"chatrelay/internal/relay"
)

// noAnswer is shown when the upstream reply carries no usable text.
const noAnswer = "Sem resposta textual da API."

// Relayer sends an assembled prompt upstream.
type Relayer interface {
	Send(ctx context.Context, payload *core.PromptPayload) (*relay.Reply, error)
}

// Extractor turns an upload into text.
type Extractor interface {
	Extract(filename string, r io.Reader) (extractor.Result, error)
	SupportedExtensions() []string
}

// Handler holds the HTTP handlers
type Handler struct {
	relayer   Relayer
	extractor Extractor
	page      landing.Page
}

// NewHandler creates a new handler
func NewHandler(relayer Relayer, ext Extractor, page landing.Page) *Handler {
	return &Handler{
		relayer:   relayer,
		extractor: ext,
		page:      page,
	}
}

// Chat handles POST /api/chat
func (h *Handler) Chat(c echo.Context) error {
	form, err := parseForm(c)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return handleError(c, err)
	}

	message := c.FormValue("message")
	conversationID := c.FormValue("conversation_id")

	fileText, filename, err := h.readUpload(form)
	if err != nil {
		return handleError(c, err)
	}

	query, err := prompt.Assemble(message, fileText, filename)
	if err != nil {
		return handleError(c, err)
	}

	payload := core.NewPromptPayload(query, "user-"+remoteIP(c.Request()), conversationID)
	reply, err := h.relayer.Send(c.Request().Context(), payload)
	if err != nil {
		return handleError(c, err)
	}

	answer := reply.Answer
	if answer == "" {
		answer = noAnswer
	}

	return c.JSON(http.StatusOK, core.ChatResponse{
		Success:        true,
		Message:        answer,
		ConversationID: reply.ConversationID,
		Raw:            reply.Raw,
	})
}

// parseForm reads the request body once. A non-multipart body yields a nil
// form with its url-encoded fields still available through FormValue.
// Body limit violations come back as the middleware's *echo.HTTPError.
func parseForm(c echo.Context) (*multipart.Form, error) {
	form, err := c.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, core.NewInternalError(core.ErrorKindInternal, err)
	}
	return form, nil
}

// readUpload extracts the optional "file" field. An absent field, a field
// without a filename and a non-multipart body all mean "no file".
func (h *Handler) readUpload(form *multipart.Form) (text, filename string, err error) {
	if form == nil || len(form.File["file"]) == 0 {
		return "", "", nil
	}
	fh := form.File["file"][0]
	if fh.Filename == "" {
		return "", "", nil
	}

	f, err := fh.Open()
	if err != nil {
		return "", "", core.NewInternalError(core.ErrorKindExtraction, err)
	}
	defer func() {
		_ = f.Close() //nolint:errcheck
	}()

	res, err := h.extractor.Extract(fh.Filename, f)
	if err != nil {
		return "", "", core.NewInternalError(core.ErrorKindExtraction, err)
	}
	if !res.Supported {
		return "", "", core.NewUnsupportedFormatError(res.Filename)
	}
	return res.Text, res.Filename, nil
}

// Index handles GET /
func (h *Handler) Index(c echo.Context) error {
	return c.Render(http.StatusOK, landing.TemplateName, h.page)
}

// Favicon handles GET /favicon.ico
func (h *Handler) Favicon(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// remoteIP is the peer address of the connection, without port. Forwarding
// headers are not consulted.
func remoteIP(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}
