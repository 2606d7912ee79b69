package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/salscrudato/product-console/internal/model"
	"github.com/salscrudato/product-console/internal/store"
)

// Assistant is what the chat endpoints need from the pipeline.
type Assistant interface {
	Ask(ctx context.Context, sessionID, query string) (*model.ChatMessage, error)
	History(sessionID string) []model.ChatMessage
	NewSessionID() string
}

// Feeds is what the news endpoints need from the feed syncer.
type Feeds interface {
	News(ctx context.Context) ([]model.NewsArticle, error)
	Earnings(ctx context.Context) ([]model.EarningsReport, error)
}

// Handler holds the handlers' shared dependencies.
type Handler struct {
	store     store.Store
	assistant Assistant
	feeds     Feeds
}

// NewHandler creates a Handler.
func NewHandler(st store.Store, assistant Assistant, feeds Feeds) *Handler {
	return &Handler{store: st, assistant: assistant, feeds: feeds}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			zap.L().Error("api: encode response", zap.Error(err))
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Products ---

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		h.serverError(w, "list products", err)
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(products))
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if !decode(w, r, &p) {
		return
	}
	if p.Name == "" || p.ProductCode == "" {
		respondError(w, http.StatusBadRequest, "name and productCode are required")
		return
	}
	created, err := h.store.CreateProduct(r.Context(), p)
	if err != nil {
		h.serverError(w, "create product", err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.serverError(w, "get product", err)
		return
	}
	if p == nil {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if !decode(w, r, &p) {
		return
	}
	p.ID = chi.URLParam(r, "id")
	if err := h.store.UpdateProduct(r.Context(), p); err != nil {
		h.serverError(w, "update product", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.serverError(w, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Coverages ---

func (h *Handler) ListCoverages(w http.ResponseWriter, r *http.Request) {
	coverages, err := h.store.ListCoverages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.serverError(w, "list coverages", err)
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(coverages))
}

func (h *Handler) ListAllCoverages(w http.ResponseWriter, r *http.Request) {
	coverages, err := h.store.ListAllCoverages(r.Context())
	if err != nil {
		h.serverError(w, "list all coverages", err)
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(coverages))
}

func (h *Handler) CreateCoverage(w http.ResponseWriter, r *http.Request) {
	var c model.Coverage
	if !decode(w, r, &c) {
		return
	}
	c.ProductID = chi.URLParam(r, "id")
	created, err := h.store.CreateCoverage(r.Context(), c)
	if err != nil {
		if model.IsValidationError(err) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.serverError(w, "create coverage", err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetCoverage(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.GetCoverage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.serverError(w, "get coverage", err)
		return
	}
	if c == nil {
		respondError(w, http.StatusNotFound, "coverage not found")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handler) UpdateCoverage(w http.ResponseWriter, r *http.Request) {
	var c model.Coverage
	if !decode(w, r, &c) {
		return
	}
	c.ID = chi.URLParam(r, "id")
	if err := h.store.UpdateCoverage(r.Context(), c); err != nil {
		if model.IsValidationError(err) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.serverError(w, "update coverage", err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteCoverage(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteCoverage(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.serverError(w, "delete coverage", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Pricing steps ---

func (h *Handler) ListPricingSteps(w http.ResponseWriter, r *http.Request) {
	steps, err := h.store.ListPricingSteps(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.serverError(w, "list pricing steps", err)
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(steps))
}

func (h *Handler) CreatePricingStep(w http.ResponseWriter, r *http.Request) {
	var step model.PricingStep
	if !decode(w, r, &step) {
		return
	}
	step.ProductID = chi.URLParam(r, "id")
	created, err := h.store.CreatePricingStep(r.Context(), step)
	if err != nil {
		h.serverError(w, "create pricing step", err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) DeletePricingStep(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeletePricingStep(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.serverError(w, "delete pricing step", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Forms ---

func (h *Handler) ListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := h.store.ListForms(r.Context())
	if err != nil {
		h.serverError(w, "list forms", err)
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(forms))
}

func (h *Handler) CreateForm(w http.ResponseWriter, r *http.Request) {
	var f model.Form
	if !decode(w, r, &f) {
		return
	}
	if f.FormNumber == "" {
		respondError(w, http.StatusBadRequest, "formNumber is required")
		return
	}
	created, err := h.store.CreateForm(r.Context(), f)
	if err != nil {
		h.serverError(w, "create form", err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteForm(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.serverError(w, "delete form", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListFormLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.store.ListFormLinks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.serverError(w, "list form links", err)
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(links))
}

func (h *Handler) LinkForm(w http.ResponseWriter, r *http.Request) {
	var link model.FormLink
	if !decode(w, r, &link) {
		return
	}
	link.FormID = chi.URLParam(r, "id")
	if link.ProductID == "" {
		respondError(w, http.StatusBadRequest, "productId is required")
		return
	}
	created, err := h.store.LinkForm(r.Context(), link)
	if err != nil {
		h.serverError(w, "link form", err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// --- Rules ---

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	filter := store.RuleFilter{ProductID: r.URL.Query().Get("productId")}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		filter.Limit, _ = strconv.Atoi(limit)
	}
	rules, err := h.store.ListRules(r.Context(), filter)
	if err != nil {
		h.serverError(w, "list rules", err)
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(rules))
}

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rule model.Rule
	if !decode(w, r, &rule) {
		return
	}
	if rule.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	created, err := h.store.CreateRule(r.Context(), rule)
	if err != nil {
		h.serverError(w, "create rule", err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteRule(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.serverError(w, "delete rule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Tasks ---

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListTasks(r.Context())
	if err != nil {
		h.serverError(w, "list tasks", err)
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(tasks))
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var t model.Task
	if !decode(w, r, &t) {
		return
	}
	if t.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	created, err := h.store.CreateTask(r.Context(), t)
	if err != nil {
		h.serverError(w, "create task", err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var t model.Task
	if !decode(w, r, &t) {
		return
	}
	t.ID = chi.URLParam(r, "id")
	if err := h.store.UpdateTask(r.Context(), t); err != nil {
		h.serverError(w, "update task", err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// --- Chat ---

type chatRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string             `json:"sessionId"`
	Message   *model.ChatMessage `json:"message"`
}

// Chat answers one question. A missing session ID starts a new session;
// the reply always carries the session ID so the client can continue it.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = h.assistant.NewSessionID()
	}

	msg, err := h.assistant.Ask(r.Context(), sessionID, req.Message)
	if err != nil {
		// Only context cancellation reaches here; the pipeline converts
		// everything else into an assistant message.
		zap.L().Debug("api: chat aborted", zap.Error(err))
		respondError(w, http.StatusRequestTimeout, "request cancelled")
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{SessionID: sessionID, Message: msg})
}

func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	history := h.assistant.History(chi.URLParam(r, "sessionID"))
	respondJSON(w, http.StatusOK, orEmpty(history))
}

// --- Feeds ---

func (h *Handler) News(w http.ResponseWriter, r *http.Request) {
	articles, err := h.feeds.News(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "news feed unavailable")
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(articles))
}

func (h *Handler) NewsSummaries(w http.ResponseWriter, r *http.Request) {
	limit := 25
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	sums, err := h.store.ListNewsSummaries(r.Context(), limit)
	if err != nil {
		h.serverError(w, "list news summaries", err)
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(sums))
}

func (h *Handler) Earnings(w http.ResponseWriter, r *http.Request) {
	reports, err := h.feeds.Earnings(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "earnings feed unavailable")
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(reports))
}

func (h *Handler) serverError(w http.ResponseWriter, operation string, err error) {
	zap.L().Error("api: "+operation, zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}

// orEmpty keeps list endpoints returning [] instead of null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
