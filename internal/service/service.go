// Package service реализует бизнес-логику магазина игровых пополнений.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmeshcher/topup-system/internal/model"
	"github.com/mmeshcher/topup-system/internal/repository"
	"github.com/mmeshcher/topup-system/internal/validation"
)

// ErrInvalidTransition возвращается при недопустимом переходе статуса заказа.
var ErrInvalidTransition = errors.New("invalid status transition")

// ValidationError описывает отклонённую форму заказа с перечнем
// отсутствующих или некорректных полей.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, name, phone string, role model.UserRole) (int64, error)
	GetUserByPhone(ctx context.Context, phone string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	ListPackages(ctx context.Context) ([]model.Package, error)
	GetPackage(ctx context.Context, id string) (*model.Package, error)
	AddPackage(ctx context.Context, pkg model.Package) error
	UpdatePackage(ctx context.Context, id string, upd model.PackageUpdate) error
	DeletePackage(ctx context.Context, id string) error
	GetSettings(ctx context.Context) (*model.SiteSettings, error)
	UpdateSettings(ctx context.Context, s model.SiteSettings) error
	AddOrder(ctx context.Context, o model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error
}

// Service содержит бизнес-логику магазина пополнений.
type Service struct {
	repo       Repository
	adminPhone string
}

// NewService создаёт новый сервис. Пользователь с номером adminPhone
// получает роль администратора при входе.
func NewService(repo Repository, adminPhone string) *Service {
	return &Service{
		repo:       repo,
		adminPhone: adminPhone,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Login находит пользователя по номеру телефона или создаёт нового.
// Роль определяется здесь один раз и сохраняется вместе с пользователем.
func (s *Service) Login(ctx context.Context, name, phone string) (*model.User, error) {
	u, err := s.repo.GetUserByPhone(ctx, phone)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	role := model.RoleUser
	if s.adminPhone != "" && phone == s.adminPhone {
		role = model.RoleAdmin
	}

	id, err := s.repo.CreateUser(ctx, name, phone, role)
	if err != nil {
		// Параллельный вход с тем же номером: читаем созданного
		if errors.Is(err, repository.ErrUserExists) {
			return s.repo.GetUserByPhone(ctx, phone)
		}
		return nil, err
	}

	return s.repo.GetUserByID(ctx, id)
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// ListPackages возвращает каталог в порядке добавления.
func (s *Service) ListPackages(ctx context.Context) ([]model.Package, error) {
	return s.repo.ListPackages(ctx)
}

// AddPackage добавляет товар в каталог.
func (s *Service) AddPackage(ctx context.Context, pkg model.Package) error {
	var bad []string
	if pkg.ID == "" {
		bad = append(bad, "id")
	}
	if pkg.Name == "" {
		bad = append(bad, "name")
	}
	if pkg.Price <= 0 {
		bad = append(bad, "price")
	}
	if pkg.Amount < 0 {
		bad = append(bad, "amount")
	}
	if !pkg.Type.Valid() {
		bad = append(bad, "type")
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return s.repo.AddPackage(ctx, pkg)
}

// UpdatePackage применяет частичное обновление товара.
func (s *Service) UpdatePackage(ctx context.Context, id string, upd model.PackageUpdate) error {
	var bad []string
	if upd.Price != nil && *upd.Price <= 0 {
		bad = append(bad, "price")
	}
	if upd.Amount != nil && *upd.Amount < 0 {
		bad = append(bad, "amount")
	}
	if upd.Type != nil && !upd.Type.Valid() {
		bad = append(bad, "type")
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return s.repo.UpdatePackage(ctx, id, upd)
}

// DeletePackage удаляет товар. Исторические заказы хранят снимок и не меняются.
func (s *Service) DeletePackage(ctx context.Context, id string) error {
	return s.repo.DeletePackage(ctx, id)
}

// GetSettings возвращает настройки сайта.
func (s *Service) GetSettings(ctx context.Context) (*model.SiteSettings, error) {
	return s.repo.GetSettings(ctx)
}

// UpdateSettings полностью заменяет настройки сайта. Вызов доверенный,
// проверяется только диапазон процента сервисного сбора.
func (s *Service) UpdateSettings(ctx context.Context, settings model.SiteSettings) error {
	if settings.ServiceChargePercent < 0 || settings.ServiceChargePercent > 100 {
		return &ValidationError{Fields: []string{"serviceChargePercent"}}
	}
	return s.repo.UpdateSettings(ctx, settings)
}

// serviceCharge считает сервисный сбор в минимальных единицах валюты.
// Округление всегда вверх, чтобы не недополучать доли единицы.
func serviceCharge(price, percent int64) int64 {
	return (price*percent + 99) / 100
}

// Quote возвращает расчёт стоимости заказа для товара по текущим настройкам.
func (s *Service) Quote(ctx context.Context, packageID string) (*model.Quote, error) {
	pkg, err := s.repo.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	charge := serviceCharge(pkg.Price, settings.ServiceChargePercent)

	return &model.Quote{
		PackageID:            pkg.ID,
		Price:                pkg.Price,
		ServiceChargePercent: settings.ServiceChargePercent,
		ServiceCharge:        charge,
		TotalPayable:         pkg.Price + charge,
	}, nil
}

const (
	orderIDPrefix   = "ORD-"
	orderIDLength   = 9
	orderIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	orderIDAttempts = 5
)

func generateOrderID() (string, error) {
	buf := make([]byte, orderIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = orderIDAlphabet[int(b)%len(orderIDAlphabet)]
	}
	return orderIDPrefix + string(buf), nil
}

// PlaceOrder проверяет форму заказа, считает стоимость и сохраняет заказ
// в статусе PENDING. При ошибке валидации заказ не создаётся вовсе.
func (s *Service) PlaceOrder(ctx context.Context, userID int64, sub model.OrderSubmission) (*model.Order, error) {
	pkg, err := s.repo.GetPackage(ctx, sub.PackageID)
	if err != nil {
		return nil, err
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	if missing := validation.MissingOrderFields(pkg.Type, sub); len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	charge := serviceCharge(pkg.Price, settings.ServiceChargePercent)

	order := model.Order{
		UserID:        userID,
		PackageID:     pkg.ID,
		PackageName:   pkg.Name,
		Amount:        pkg.Amount,
		Price:         pkg.Price,
		ServiceCharge: charge,
		TotalPayable:  pkg.Price + charge,
		PaymentMethod: sub.PaymentMethod,
		SenderNumber:  sub.SenderNumber,
		TransactionID: sub.TransactionID,
		Status:        model.OrderStatusPending,
		CreatedAt:     time.Now(),
	}

	switch pkg.Type {
	case model.PackageTypeInGame:
		order.LoginAccount = sub.LoginAccount
	default:
		order.PlayerAccount = sub.PlayerAccount
	}

	// Коллизия сгенерированного идентификатора крайне маловероятна,
	// но хранилище её сообщает, поэтому пробуем ещё раз.
	for attempt := 0; attempt < orderIDAttempts; attempt++ {
		order.ID, err = generateOrderID()
		if err != nil {
			return nil, err
		}

		err = s.repo.AddOrder(ctx, order)
		if err == nil {
			return &order, nil
		}
		if !errors.Is(err, repository.ErrOrderExists) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("generate order id: %w", err)
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders возвращает все заказы в порядке добавления.
func (s *Service) ListOrders(ctx context.Context) ([]model.Order, error) {
	return s.repo.ListOrders(ctx)
}

// ListOrdersByUser возвращает заказы пользователя в порядке добавления.
func (s *Service) ListOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.repo.ListOrdersByUser(ctx, userID)
}

// allowedTransitions задаёт машину статусов заказа:
// COMPLETED и CANCELLED — терминальные состояния.
var allowedTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:    {model.OrderStatusProcessing, model.OrderStatusCompleted, model.OrderStatusCancelled},
	model.OrderStatusProcessing: {model.OrderStatusCompleted, model.OrderStatusCancelled},
}

func transitionAllowed(from, to model.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateOrderStatus переводит заказ в новый статус. Переходы ограничены
// машиной статусов; force обходит ограничение для ручного вмешательства
// администратора.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, force bool) error {
	if !status.Valid() {
		return &ValidationError{Fields: []string{"status"}}
	}

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return err
	}

	if !force && !transitionAllowed(order.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}

	return s.repo.UpdateOrderStatus(ctx, id, status)
}

// Stats возвращает сводку для панели администратора: выручка считается
// только по завершённым заказам.
func (s *Service) Stats(ctx context.Context) (*model.AdminStats, error) {
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	stats := &model.AdminStats{TotalOrders: len(orders)}
	for _, o := range orders {
		switch o.Status {
		case model.OrderStatusCompleted:
			stats.TotalRevenue += o.TotalPayable
		case model.OrderStatusPending:
			stats.PendingOrders++
		}
	}

	return stats, nil
}

// Bootstrap заполняет пустое хранилище каталогом и настройками по умолчанию.
func (s *Service) Bootstrap(ctx context.Context) error {
	if _, err := s.repo.GetSettings(ctx); err != nil {
		if !errors.Is(err, repository.ErrSettingsNotFound) {
			return err
		}
		if err := s.repo.UpdateSettings(ctx, defaultSettings); err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}
	}

	packages, err := s.repo.ListPackages(ctx)
	if err != nil {
		return err
	}
	if len(packages) > 0 {
		return nil
	}

	for _, pkg := range defaultPackages {
		if err := s.repo.AddPackage(ctx, pkg); err != nil {
			return fmt.Errorf("seed package %s: %w", pkg.ID, err)
		}
	}

	return nil
}
