// Package repository содержит реализации хранилища данных магазина пополнений.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mmeshcher/topup-system/internal/model"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrPackageExists возвращается при попытке добавить товар с уже существующим идентификатором.
var (
	ErrPackageExists = errors.New("package already exists")
	// ErrPackageNotFound возвращается, если товар не найден.
	ErrPackageNotFound = errors.New("package not found")
	// ErrOrderExists возвращается при коллизии идентификатора заказа.
	ErrOrderExists = errors.New("order already exists")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrUserExists возвращается при попытке создать пользователя с уже существующим телефоном.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrSettingsNotFound возвращается, пока настройки сайта ни разу не сохранялись.
	ErrSettingsNotFound = errors.New("settings not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя с указанной ролью.
func (r *PostgresRepository) CreateUser(ctx context.Context, name, phone string, role model.UserRole) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, phone, role) VALUES ($1, $2, $3) RETURNING id`,
		name, phone, string(role),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, phone)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByPhone возвращает пользователя по номеру телефона.
func (r *PostgresRepository) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, phone, role, created_at FROM users WHERE phone = $1`,
		phone,
	)
	return scanUser(row)
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, phone, role, created_at FROM users WHERE id = $1`,
		id,
	)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Phone, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.UserRole(role)
	return &u, nil
}

// ListPackages возвращает товары каталога в порядке добавления.
func (r *PostgresRepository) ListPackages(ctx context.Context) ([]model.Package, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, amount, price, type, delivery_time
		 FROM packages
		 ORDER BY pos`,
	)
	if err != nil {
		return nil, fmt.Errorf("select packages: %w", err)
	}
	defer rows.Close()

	var packages []model.Package
	for rows.Next() {
		var p model.Package
		var typ string
		if err := rows.Scan(&p.ID, &p.Name, &p.Amount, &p.Price, &typ, &p.DeliveryTime); err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		p.Type = model.PackageType(typ)
		packages = append(packages, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return packages, nil
}

// GetPackage возвращает товар по идентификатору.
func (r *PostgresRepository) GetPackage(ctx context.Context, id string) (*model.Package, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, amount, price, type, delivery_time FROM packages WHERE id = $1`,
		id,
	)

	var p model.Package
	var typ string
	err := row.Scan(&p.ID, &p.Name, &p.Amount, &p.Price, &typ, &p.DeliveryTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPackageNotFound
		}
		return nil, fmt.Errorf("get package: %w", err)
	}
	p.Type = model.PackageType(typ)

	return &p, nil
}

// AddPackage добавляет товар в каталог.
func (r *PostgresRepository) AddPackage(ctx context.Context, pkg model.Package) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO packages (id, name, amount, price, type, delivery_time)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		pkg.ID, pkg.Name, pkg.Amount, pkg.Price, string(pkg.Type), pkg.DeliveryTime,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrPackageExists, pkg.ID)
		}
		return fmt.Errorf("insert package: %w", err)
	}
	return nil
}

// UpdatePackage применяет частичное обновление товара: nil-поля остаются прежними.
func (r *PostgresRepository) UpdatePackage(ctx context.Context, id string, upd model.PackageUpdate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var p model.Package
	var typ string
	err = tx.QueryRow(ctx,
		`SELECT id, name, amount, price, type, delivery_time FROM packages WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&p.ID, &p.Name, &p.Amount, &p.Price, &typ, &p.DeliveryTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPackageNotFound
		}
		return fmt.Errorf("select package: %w", err)
	}
	p.Type = model.PackageType(typ)

	applyPackageUpdate(&p, upd)

	_, err = tx.Exec(ctx,
		`UPDATE packages SET name = $2, amount = $3, price = $4, type = $5, delivery_time = $6 WHERE id = $1`,
		p.ID, p.Name, p.Amount, p.Price, string(p.Type), p.DeliveryTime,
	)
	if err != nil {
		return fmt.Errorf("update package: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func applyPackageUpdate(p *model.Package, upd model.PackageUpdate) {
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Amount != nil {
		p.Amount = *upd.Amount
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Type != nil {
		p.Type = *upd.Type
	}
	if upd.DeliveryTime != nil {
		p.DeliveryTime = *upd.DeliveryTime
	}
}

// DeletePackage удаляет товар из каталога. Снимки цен в заказах не затрагиваются.
func (r *PostgresRepository) DeletePackage(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM packages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete package: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrPackageNotFound
	}
	return nil
}

// GetSettings возвращает единственную запись настроек сайта.
func (r *PostgresRepository) GetSettings(ctx context.Context) (*model.SiteSettings, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT bkash_number, nagad_number, binance_id, service_charge_percent, notice_text, whatsapp, telegram
		 FROM site_settings WHERE id = 1`,
	)

	var s model.SiteSettings
	err := row.Scan(&s.BkashNumber, &s.NagadNumber, &s.BinanceID, &s.ServiceChargePercent,
		&s.NoticeText, &s.WhatsApp, &s.Telegram)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}

	return &s, nil
}

// UpdateSettings полностью заменяет запись настроек сайта.
func (r *PostgresRepository) UpdateSettings(ctx context.Context, s model.SiteSettings) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO site_settings (id, bkash_number, nagad_number, binance_id, service_charge_percent, notice_text, whatsapp, telegram)
		 VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   bkash_number = EXCLUDED.bkash_number,
		   nagad_number = EXCLUDED.nagad_number,
		   binance_id = EXCLUDED.binance_id,
		   service_charge_percent = EXCLUDED.service_charge_percent,
		   notice_text = EXCLUDED.notice_text,
		   whatsapp = EXCLUDED.whatsapp,
		   telegram = EXCLUDED.telegram`,
		s.BkashNumber, s.NagadNumber, s.BinanceID, s.ServiceChargePercent,
		s.NoticeText, s.WhatsApp, s.Telegram,
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// AddOrder сохраняет новый заказ.
func (r *PostgresRepository) AddOrder(ctx context.Context, o model.Order) error {
	return r.withRetry(ctx, func() error {
		var playerUID, playerName *string
		if o.PlayerAccount != nil {
			playerUID = &o.PlayerAccount.UID
			playerName = &o.PlayerAccount.Name
		}

		var loginMethod, loginID, loginPassword, backupCode *string
		if o.LoginAccount != nil {
			m := string(o.LoginAccount.Method)
			loginMethod = &m
			loginID = &o.LoginAccount.LoginID
			loginPassword = &o.LoginAccount.Password
			backupCode = &o.LoginAccount.BackupCode
		}

		_, err := r.pool.Exec(ctx,
			`INSERT INTO orders (id, user_id, player_uid, player_name,
			                     login_method, login_id, login_password, login_backup_code,
			                     package_id, package_name, amount, price,
			                     service_charge, total_payable,
			                     payment_method, sender_number, transaction_id, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
			o.ID, o.UserID, playerUID, playerName,
			loginMethod, loginID, loginPassword, backupCode,
			o.PackageID, o.PackageName, o.Amount, o.Price,
			o.ServiceCharge, o.TotalPayable,
			string(o.PaymentMethod), o.SenderNumber, o.TransactionID, string(o.Status), o.CreatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return fmt.Errorf("%w: %s", ErrOrderExists, o.ID)
			}
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
}

const orderColumns = `id, user_id, player_uid, player_name,
	login_method, login_id, login_password, login_backup_code,
	package_id, package_name, amount, price,
	service_charge, total_payable,
	payment_method, sender_number, transaction_id, status, created_at`

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`,
		id,
	)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListOrders возвращает все заказы в порядке добавления.
func (r *PostgresRepository) ListOrders(ctx context.Context) ([]model.Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY pos`)
}

// ListOrdersByUser возвращает заказы пользователя в порядке добавления.
func (r *PostgresRepository) ListOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return r.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY pos`,
		userID,
	)
}

func (r *PostgresRepository) listOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o             model.Order
		playerUID     *string
		playerName    *string
		loginMethod   *string
		loginID       *string
		loginPassword *string
		backupCode    *string
		paymentMethod string
		status        string
	)

	err := row.Scan(&o.ID, &o.UserID, &playerUID, &playerName,
		&loginMethod, &loginID, &loginPassword, &backupCode,
		&o.PackageID, &o.PackageName, &o.Amount, &o.Price,
		&o.ServiceCharge, &o.TotalPayable,
		&paymentMethod, &o.SenderNumber, &o.TransactionID, &status, &o.CreatedAt)
	if err != nil {
		return nil, err
	}

	if playerUID != nil {
		o.PlayerAccount = &model.PlayerAccount{UID: *playerUID}
		if playerName != nil {
			o.PlayerAccount.Name = *playerName
		}
	}
	if loginMethod != nil {
		o.LoginAccount = &model.LoginAccount{Method: model.LoginMethod(*loginMethod)}
		if loginID != nil {
			o.LoginAccount.LoginID = *loginID
		}
		if loginPassword != nil {
			o.LoginAccount.Password = *loginPassword
		}
		if backupCode != nil {
			o.LoginAccount.BackupCode = *backupCode
		}
	}

	o.PaymentMethod = model.PaymentMethod(paymentMethod)
	o.Status = model.OrderStatus(status)

	return &o, nil
}

// UpdateOrderStatus перезаписывает только статус заказа, остальные поля не меняются.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	return r.withRetry(ctx, func() error {
		cmdTag, err := r.pool.Exec(ctx,
			`UPDATE orders SET status = $2 WHERE id = $1`,
			id, string(status),
		)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrOrderNotFound
		}
		return nil
	})
}
