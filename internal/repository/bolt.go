package repository

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/mmeshcher/topup-system/internal/model"
)

// Имена bucket-ов: по одной коллекции на каждую сущность.
var (
	bucketUsers      = []byte("users")
	bucketUserPhones = []byte("user_phones")
	bucketPackages   = []byte("packages")
	bucketSettings   = []byte("settings")
	bucketOrders     = []byte("orders")
)

var settingsKey = []byte("site")

// BoltRepository хранит данные магазина в одном файле BoltDB.
// Записи сериализуются в JSON; порядок добавления сохраняется через
// порядковые номера bucket-ов.
type BoltRepository struct {
	db *bolt.DB
}

// NewBoltRepository открывает (или создаёт) файл хранилища по указанному пути.
func NewBoltRepository(path string) (*BoltRepository, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketUsers, bucketUserPhones, bucketPackages, bucketSettings, bucketOrders} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltRepository{db: db}, nil
}

// Close освобождает файл хранилища.
func (r *BoltRepository) Close() error {
	return r.db.Close()
}

// packageRecord оборачивает товар порядковым номером для сохранения порядка добавления.
type packageRecord struct {
	Seq     uint64        `json:"seq"`
	Package model.Package `json:"package"`
}

// orderRecord оборачивает заказ порядковым номером для сохранения порядка добавления.
type orderRecord struct {
	Seq   uint64      `json:"seq"`
	Order model.Order `json:"order"`
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// CreateUser создаёт нового пользователя с указанной ролью.
func (r *BoltRepository) CreateUser(ctx context.Context, name, phone string, role model.UserRole) (int64, error) {
	var id int64
	err := r.db.Update(func(tx *bolt.Tx) error {
		phones := tx.Bucket(bucketUserPhones)
		if phones.Get([]byte(phone)) != nil {
			return fmt.Errorf("%w: %s", ErrUserExists, phone)
		}

		users := tx.Bucket(bucketUsers)
		seq, err := users.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		id = int64(seq)

		u := model.User{
			ID:        id,
			Name:      name,
			Phone:     phone,
			Role:      role,
			CreatedAt: time.Now(),
		}
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		if err := users.Put(itob(seq), data); err != nil {
			return fmt.Errorf("put user: %w", err)
		}
		if err := phones.Put([]byte(phone), itob(seq)); err != nil {
			return fmt.Errorf("put phone index: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetUserByPhone возвращает пользователя по номеру телефона.
func (r *BoltRepository) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	var u *model.User
	err := r.db.View(func(tx *bolt.Tx) error {
		key := tx.Bucket(bucketUserPhones).Get([]byte(phone))
		if key == nil {
			return ErrUserNotFound
		}
		data := tx.Bucket(bucketUsers).Get(key)
		if data == nil {
			return ErrUserNotFound
		}
		u = &model.User{}
		if err := json.Unmarshal(data, u); err != nil {
			return fmt.Errorf("unmarshal user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *BoltRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u *model.User
	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketUsers).Get(itob(uint64(id)))
		if data == nil {
			return ErrUserNotFound
		}
		u = &model.User{}
		if err := json.Unmarshal(data, u); err != nil {
			return fmt.Errorf("unmarshal user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListPackages возвращает товары каталога в порядке добавления.
func (r *BoltRepository) ListPackages(ctx context.Context) ([]model.Package, error) {
	var records []packageRecord
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPackages).ForEach(func(k, v []byte) error {
			var rec packageRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshal package: %w", err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })

	packages := make([]model.Package, 0, len(records))
	for _, rec := range records {
		packages = append(packages, rec.Package)
	}
	return packages, nil
}

// GetPackage возвращает товар по идентификатору.
func (r *BoltRepository) GetPackage(ctx context.Context, id string) (*model.Package, error) {
	var p *model.Package
	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketPackages).Get([]byte(id))
		if data == nil {
			return ErrPackageNotFound
		}
		var rec packageRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("unmarshal package: %w", err)
		}
		p = &rec.Package
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// AddPackage добавляет товар в каталог.
func (r *BoltRepository) AddPackage(ctx context.Context, pkg model.Package) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPackages)
		if b.Get([]byte(pkg.ID)) != nil {
			return fmt.Errorf("%w: %s", ErrPackageExists, pkg.ID)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		data, err := json.Marshal(packageRecord{Seq: seq, Package: pkg})
		if err != nil {
			return fmt.Errorf("marshal package: %w", err)
		}
		if err := b.Put([]byte(pkg.ID), data); err != nil {
			return fmt.Errorf("put package: %w", err)
		}
		return nil
	})
}

// UpdatePackage применяет частичное обновление товара: nil-поля остаются прежними.
func (r *BoltRepository) UpdatePackage(ctx context.Context, id string, upd model.PackageUpdate) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPackages)
		data := b.Get([]byte(id))
		if data == nil {
			return ErrPackageNotFound
		}
		var rec packageRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("unmarshal package: %w", err)
		}

		applyPackageUpdate(&rec.Package, upd)

		updated, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal package: %w", err)
		}
		// Идентичные данные не перезаписываем
		if bytes.Equal(updated, data) {
			return nil
		}
		if err := b.Put([]byte(id), updated); err != nil {
			return fmt.Errorf("put package: %w", err)
		}
		return nil
	})
}

// DeletePackage удаляет товар из каталога. Снимки цен в заказах не затрагиваются.
func (r *BoltRepository) DeletePackage(ctx context.Context, id string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPackages)
		if b.Get([]byte(id)) == nil {
			return ErrPackageNotFound
		}
		if err := b.Delete([]byte(id)); err != nil {
			return fmt.Errorf("delete package: %w", err)
		}
		return nil
	})
}

// GetSettings возвращает единственную запись настроек сайта.
func (r *BoltRepository) GetSettings(ctx context.Context) (*model.SiteSettings, error) {
	var s *model.SiteSettings
	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSettings).Get(settingsKey)
		if data == nil {
			return ErrSettingsNotFound
		}
		s = &model.SiteSettings{}
		if err := json.Unmarshal(data, s); err != nil {
			return fmt.Errorf("unmarshal settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateSettings полностью заменяет запись настроек сайта.
func (r *BoltRepository) UpdateSettings(ctx context.Context, s model.SiteSettings) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal settings: %w", err)
		}
		if err := tx.Bucket(bucketSettings).Put(settingsKey, data); err != nil {
			return fmt.Errorf("put settings: %w", err)
		}
		return nil
	})
}

// AddOrder сохраняет новый заказ.
func (r *BoltRepository) AddOrder(ctx context.Context, o model.Order) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOrders)
		if b.Get([]byte(o.ID)) != nil {
			return fmt.Errorf("%w: %s", ErrOrderExists, o.ID)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		data, err := json.Marshal(orderRecord{Seq: seq, Order: o})
		if err != nil {
			return fmt.Errorf("marshal order: %w", err)
		}
		if err := b.Put([]byte(o.ID), data); err != nil {
			return fmt.Errorf("put order: %w", err)
		}
		return nil
	})
}

// GetOrder возвращает заказ по идентификатору.
func (r *BoltRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var o *model.Order
	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketOrders).Get([]byte(id))
		if data == nil {
			return ErrOrderNotFound
		}
		var rec orderRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("unmarshal order: %w", err)
		}
		o = &rec.Order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders возвращает все заказы в порядке добавления.
func (r *BoltRepository) ListOrders(ctx context.Context) ([]model.Order, error) {
	return r.listOrders(func(model.Order) bool { return true })
}

// ListOrdersByUser возвращает заказы пользователя в порядке добавления.
func (r *BoltRepository) ListOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return r.listOrders(func(o model.Order) bool { return o.UserID == userID })
}

func (r *BoltRepository) listOrders(keep func(model.Order) bool) ([]model.Order, error) {
	var records []orderRecord
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOrders).ForEach(func(k, v []byte) error {
			var rec orderRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshal order: %w", err)
			}
			if keep(rec.Order) {
				records = append(records, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })

	orders := make([]model.Order, 0, len(records))
	for _, rec := range records {
		orders = append(orders, rec.Order)
	}
	return orders, nil
}

// UpdateOrderStatus перезаписывает только статус заказа, остальные поля не меняются.
func (r *BoltRepository) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOrders)
		data := b.Get([]byte(id))
		if data == nil {
			return ErrOrderNotFound
		}
		var rec orderRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("unmarshal order: %w", err)
		}
		rec.Order.Status = status
		updated, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal order: %w", err)
		}
		if err := b.Put([]byte(id), updated); err != nil {
			return fmt.Errorf("put order: %w", err)
		}
		return nil
	})
}
