// Package handler содержит HTTP-обработчики API магазина пополнений.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/topup-system/internal/middleware"
	"github.com/mmeshcher/topup-system/internal/model"
	"github.com/mmeshcher/topup-system/internal/repository"
	"github.com/mmeshcher/topup-system/internal/service"
	"github.com/mmeshcher/topup-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Login(ctx context.Context, name, phone string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	ListPackages(ctx context.Context) ([]model.Package, error)
	AddPackage(ctx context.Context, pkg model.Package) error
	UpdatePackage(ctx context.Context, id string, upd model.PackageUpdate) error
	DeletePackage(ctx context.Context, id string) error
	GetSettings(ctx context.Context) (*model.SiteSettings, error)
	UpdateSettings(ctx context.Context, settings model.SiteSettings) error
	Quote(ctx context.Context, packageID string) (*model.Quote, error)
	PlaceOrder(ctx context.Context, userID int64, sub model.OrderSubmission) (*model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, force bool) error
	Stats(ctx context.Context) (*model.AdminStats, error)
}

// Handler реализует HTTP-обработчики API магазина пополнений.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type loginRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type validationResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func writeValidationError(w http.ResponseWriter, vErr *service.ValidationError) {
	writeJSON(w, http.StatusBadRequest, validationResponse{
		Error:  "validation failed",
		Fields: vErr.Fields,
	})
}

// Login находит или создаёт пользователя по номеру телефона и устанавливает cookie сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Phone == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidPhone(req.Phone) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	user, err := h.service.Login(r.Context(), req.Name, req.Phone)
	if err != nil {
		h.logger.Error("login error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, user.ID)
	writeJSON(w, http.StatusOK, userResponse{
		ID:    user.ID,
		Name:  user.Name,
		Phone: user.Phone,
		Role:  string(user.Role),
	})
}

// Logout очищает cookie сессии.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

// Me возвращает текущего пользователя сессии.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("get user error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:    user.ID,
		Name:  user.Name,
		Phone: user.Phone,
		Role:  string(user.Role),
	})
}

// requireAdmin пропускает дальше только пользователей с ролью администратора.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		user, err := h.service.GetUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			h.logger.Error("get user error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		if !user.IsAdmin() {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ListPackages возвращает каталог товаров.
func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.service.ListPackages(r.Context())
	if err != nil {
		h.logger.Error("list packages error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if packages == nil {
		packages = []model.Package{}
	}
	writeJSON(w, http.StatusOK, packages)
}

// GetSettings возвращает настройки сайта.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.GetSettings(r.Context())
	if err != nil {
		h.logger.Error("get settings error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// Quote возвращает расчёт стоимости заказа для товара.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.service.Quote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrPackageNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("quote error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

type orderResponse struct {
	ID            string               `json:"id"`
	UserID        int64                `json:"userId"`
	PlayerAccount *model.PlayerAccount `json:"playerAccount,omitempty"`
	LoginAccount  *model.LoginAccount  `json:"loginAccount,omitempty"`
	PackageID     string               `json:"packageId"`
	PackageName   string               `json:"packageName"`
	Amount        int64                `json:"amount"`
	Price         int64                `json:"price"`
	ServiceCharge int64                `json:"serviceCharge"`
	TotalPayable  int64                `json:"totalPayable"`
	PaymentMethod string               `json:"paymentMethod"`
	SenderNumber  string               `json:"senderNumber"`
	TransactionID string               `json:"transactionId"`
	Status        string               `json:"status"`
	CreatedAt     string               `json:"createdAt"`
}

func toOrderResponse(o model.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		PlayerAccount: o.PlayerAccount,
		LoginAccount:  o.LoginAccount,
		PackageID:     o.PackageID,
		PackageName:   o.PackageName,
		Amount:        o.Amount,
		Price:         o.Price,
		ServiceCharge: o.ServiceCharge,
		TotalPayable:  o.TotalPayable,
		PaymentMethod: string(o.PaymentMethod),
		SenderNumber:  o.SenderNumber,
		TransactionID: o.TransactionID,
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
}

// PlaceOrder принимает форму заказа от текущего пользователя.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var sub model.OrderSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), userID, sub)
	if err != nil {
		var vErr *service.ValidationError
		switch {
		case errors.As(err, &vErr):
			writeValidationError(w, vErr)
		case errors.Is(err, repository.ErrPackageNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("place order error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(*order))
}

// GetOrders возвращает список заказов текущего пользователя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.ListOrdersByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("get orders error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AdminListOrders возвращает заказы всех пользователей.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.logger.Error("list orders error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	writeJSON(w, http.StatusOK, resp)
}

type statusUpdateRequest struct {
	Status string `json:"status"`
	Force  bool   `json:"force,omitempty"`
}

// UpdateOrderStatus переводит заказ в новый статус.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	err := h.service.UpdateOrderStatus(r.Context(), id, model.OrderStatus(req.Status), req.Force)
	if err != nil {
		var vErr *service.ValidationError
		switch {
		case errors.As(err, &vErr):
			writeValidationError(w, vErr)
		case errors.Is(err, repository.ErrOrderNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, service.ErrInvalidTransition):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("update order status error", zap.Error(err), zap.String("order", id))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// AddPackage добавляет товар в каталог.
func (h *Handler) AddPackage(w http.ResponseWriter, r *http.Request) {
	var pkg model.Package
	if err := json.NewDecoder(r.Body).Decode(&pkg); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.AddPackage(r.Context(), pkg); err != nil {
		var vErr *service.ValidationError
		switch {
		case errors.As(err, &vErr):
			writeValidationError(w, vErr)
		case errors.Is(err, repository.ErrPackageExists):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("add package error", zap.Error(err), zap.String("package", pkg.ID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, pkg)
}

type packageUpdateRequest struct {
	Name         *string            `json:"name,omitempty"`
	Amount       *int64             `json:"amount,omitempty"`
	Price        *int64             `json:"price,omitempty"`
	Type         *model.PackageType `json:"type,omitempty"`
	DeliveryTime *string            `json:"deliveryTime,omitempty"`
}

// UpdatePackage применяет частичное обновление товара.
func (h *Handler) UpdatePackage(w http.ResponseWriter, r *http.Request) {
	var req packageUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	upd := model.PackageUpdate{
		Name:         req.Name,
		Amount:       req.Amount,
		Price:        req.Price,
		Type:         req.Type,
		DeliveryTime: req.DeliveryTime,
	}

	if err := h.service.UpdatePackage(r.Context(), id, upd); err != nil {
		var vErr *service.ValidationError
		switch {
		case errors.As(err, &vErr):
			writeValidationError(w, vErr)
		case errors.Is(err, repository.ErrPackageNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("update package error", zap.Error(err), zap.String("package", id))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// DeletePackage удаляет товар из каталога.
func (h *Handler) DeletePackage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeletePackage(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrPackageNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("delete package error", zap.Error(err), zap.String("package", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateSettings полностью заменяет настройки сайта.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.SiteSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateSettings(r.Context(), settings); err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			writeValidationError(w, vErr)
			return
		}
		h.logger.Error("update settings error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Stats возвращает сводку для панели администратора.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("stats error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
