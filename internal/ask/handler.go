package ask

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"log/slog"

	"github.com/Davidng2000/Gai-proxy/internal/httpserver"
	"github.com/Davidng2000/Gai-proxy/internal/llm"
	"github.com/Davidng2000/Gai-proxy/internal/session"
	"github.com/Davidng2000/Gai-proxy/internal/textutil"
)

type Deps struct {
	LLM          llm.Client
	Sessions     session.Store
	Logger       *slog.Logger
	DefaultModel string
	CodeLength   int
	ReplyLimit   int
	DebugErrors  bool
}

// Handler обрабатывает GET /ask: разбирает запрос, решает — новая сессия
// или продолжение существующей, вызывает генерацию и сохраняет ответ
// под кодом сессии.
type Handler struct {
	llm          llm.Client
	sessions     session.Store
	logger       *slog.Logger
	defaultModel string
	codeLength   int
	replyLimit   int
	debugErrors  bool
}

func NewHandler(deps Deps) *Handler {
	return &Handler{
		llm:          deps.LLM,
		sessions:     deps.Sessions,
		logger:       deps.Logger,
		defaultModel: deps.DefaultModel,
		codeLength:   deps.CodeLength,
		replyLimit:   deps.ReplyLimit,
		debugErrors:  deps.DebugErrors,
	}
}

type envelope struct {
	OK       bool   `json:"ok"`
	Response string `json:"response"`
	Short    string `json:"short"`
	Code     string `json:"code"`
	Model    string `json:"model"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	asJSON := r.URL.Query().Get("format") == "json"

	if strings.TrimSpace(query) == "" {
		h.respondError(w, http.StatusBadRequest, "no query provided, use ?q=your+question", asJSON)
		return
	}

	model := r.URL.Query().Get("model")
	if model == "" {
		model = h.defaultModel
	}

	ctx := r.Context()
	code, prompt := h.resolve(ctx, query)

	reply, err := h.llm.GenerateContent(ctx, model, prompt)
	if err != nil {
		// Полная диагностика остаётся в логах, клиенту — короткое сообщение.
		h.logger.Error("generation failed",
			slog.String("model", model),
			slog.String("code", code),
			slog.String("error", err.Error()))
		msg := "error, check logs"
		if h.debugErrors {
			msg = "error, check logs: " + err.Error()
		}
		h.respondError(w, http.StatusInternalServerError, msg, asJSON)
		return
	}

	// Под кодом остаётся полный ответ: следующее голое "#код"
	// вернёт последний ответ ассистента, а не последний вопрос.
	h.sessions.Set(ctx, code, reply)

	short := textutil.Shorten(reply, h.replyLimit)
	if asJSON {
		httpserver.WriteJSON(w, http.StatusOK, envelope{
			OK:       true,
			Response: reply,
			Short:    short,
			Code:     code,
			Model:    model,
		})
		return
	}
	httpserver.WriteText(w, http.StatusOK, fmt.Sprintf("%s  #%s", short, code))
}

// resolve определяет код сессии и активный промпт.
// Первый токен запроса (после снятия необязательного "#") — кандидат в коды:
// живой код продолжает сессию, всё остальное начинает новую с полным
// текстом запроса в качестве промпта.
func (h *Handler) resolve(ctx context.Context, query string) (code string, prompt string) {
	first, rest := splitQuery(query)
	candidate := strings.TrimPrefix(first, "#")

	if session.ValidCode(candidate) {
		if rec, ok := h.sessions.Get(ctx, candidate); ok {
			if rest != "" {
				// Явное продолжение: новый текст записывается до вызова
				// генерации, чтобы падение вызова не теряло намерение.
				h.sessions.Set(ctx, candidate, rest)
				return candidate, rest
			}
			// Голое "#код" — продолжить с последнего сохранённого значения.
			return candidate, rec.Prompt
		}
	}

	// Новая сессия: исходный запрос целиком, включая неузнанный "#токен".
	code = session.Mint(ctx, h.sessions, h.codeLength)
	h.sessions.Set(ctx, code, query)
	return code, query
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string, asJSON bool) {
	if asJSON {
		httpserver.WriteJSONError(w, status, message)
		return
	}
	httpserver.WriteText(w, status, message)
}

// splitQuery делит запрос на первый токен и остаток (оба без крайних пробелов).
func splitQuery(q string) (first, rest string) {
	q = strings.TrimSpace(q)
	i := strings.IndexFunc(q, unicode.IsSpace)
	if i < 0 {
		return q, ""
	}
	return q[:i], strings.TrimSpace(q[i:])
}
