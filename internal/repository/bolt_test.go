package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmeshcher/topup-system/internal/model"
)

func newTestRepo(t *testing.T) *BoltRepository {
	t.Helper()
	r, err := NewBoltRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func testPackage(id string, price int64) model.Package {
	return model.Package{
		ID:           id,
		Name:         id + " Diamonds",
		Amount:       100,
		Price:        price,
		Type:         model.PackageTypeDiamond,
		DeliveryTime: "5-10 Min",
	}
}

func testOrder(id string, userID int64) model.Order {
	return model.Order{
		ID:            id,
		UserID:        userID,
		PlayerAccount: &model.PlayerAccount{UID: "123456789"},
		PackageID:     "uid-100",
		PackageName:   "100 Diamonds",
		Amount:        100,
		Price:         65,
		ServiceCharge: 0,
		TotalPayable:  65,
		PaymentMethod: model.PaymentMethodBkash,
		SenderNumber:  "01700000000",
		TransactionID: "TX1",
		Status:        model.OrderStatusPending,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
}

func TestBolt_AddPackageDuplicate(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	if err := r.AddPackage(ctx, testPackage("uid-25", 22)); err != nil {
		t.Fatalf("AddPackage: %v", err)
	}

	dup := testPackage("uid-25", 999)
	err := r.AddPackage(ctx, dup)
	if !errors.Is(err, ErrPackageExists) {
		t.Fatalf("expected ErrPackageExists, got %v", err)
	}

	// Существующая запись не изменилась
	got, err := r.GetPackage(ctx, "uid-25")
	if err != nil {
		t.Fatalf("GetPackage: %v", err)
	}
	if got.Price != 22 {
		t.Fatalf("price = %d, want 22", got.Price)
	}
}

func TestBolt_ListPackagesInsertionOrder(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	ids := []string{"uid-50", "uid-25", "m-weekly", "ig-100"}
	for _, id := range ids {
		if err := r.AddPackage(ctx, testPackage(id, 40)); err != nil {
			t.Fatalf("AddPackage %s: %v", id, err)
		}
	}

	packages, err := r.ListPackages(ctx)
	if err != nil {
		t.Fatalf("ListPackages: %v", err)
	}
	if len(packages) != len(ids) {
		t.Fatalf("got %d packages, want %d", len(packages), len(ids))
	}
	for i, id := range ids {
		if packages[i].ID != id {
			t.Fatalf("packages[%d].ID = %s, want %s", i, packages[i].ID, id)
		}
	}
}

func TestBolt_UpdatePackagePartial(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	if err := r.AddPackage(ctx, testPackage("uid-115", 80)); err != nil {
		t.Fatalf("AddPackage: %v", err)
	}

	newPrice := int64(85)
	if err := r.UpdatePackage(ctx, "uid-115", model.PackageUpdate{Price: &newPrice}); err != nil {
		t.Fatalf("UpdatePackage: %v", err)
	}

	got, err := r.GetPackage(ctx, "uid-115")
	if err != nil {
		t.Fatalf("GetPackage: %v", err)
	}
	if got.Price != 85 {
		t.Fatalf("price = %d, want 85", got.Price)
	}
	if got.Name != "uid-115 Diamonds" {
		t.Fatalf("name changed unexpectedly: %s", got.Name)
	}

	err = r.UpdatePackage(ctx, "missing", model.PackageUpdate{Price: &newPrice})
	if !errors.Is(err, ErrPackageNotFound) {
		t.Fatalf("expected ErrPackageNotFound, got %v", err)
	}
}

func TestBolt_DeletePackage(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	if err := r.AddPackage(ctx, testPackage("uid-25", 22)); err != nil {
		t.Fatalf("AddPackage: %v", err)
	}
	if err := r.DeletePackage(ctx, "uid-25"); err != nil {
		t.Fatalf("DeletePackage: %v", err)
	}
	if _, err := r.GetPackage(ctx, "uid-25"); !errors.Is(err, ErrPackageNotFound) {
		t.Fatalf("expected ErrPackageNotFound after delete, got %v", err)
	}
	if err := r.DeletePackage(ctx, "uid-25"); !errors.Is(err, ErrPackageNotFound) {
		t.Fatalf("expected ErrPackageNotFound for second delete, got %v", err)
	}
}

func TestBolt_SettingsSingleton(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	if _, err := r.GetSettings(ctx); !errors.Is(err, ErrSettingsNotFound) {
		t.Fatalf("expected ErrSettingsNotFound before first write, got %v", err)
	}

	first := model.SiteSettings{BkashNumber: "111", ServiceChargePercent: 5, NoticeText: "hello"}
	if err := r.UpdateSettings(ctx, first); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	// Полная замена: поля, не заданные во второй записи, обнуляются
	second := model.SiteSettings{NagadNumber: "222"}
	if err := r.UpdateSettings(ctx, second); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	got, err := r.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.BkashNumber != "" || got.NagadNumber != "222" || got.NoticeText != "" {
		t.Fatalf("settings not fully replaced: %+v", got)
	}
}

func TestBolt_UpdateOrderStatusNotFound(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	if err := r.AddOrder(ctx, testOrder("ORD-AAA111BBB", 1)); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}

	before, err := r.ListOrders(ctx)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}

	err = r.UpdateOrderStatus(ctx, "ORD-MISSING00", model.OrderStatusCompleted)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	// Хранилище не изменилось
	after, err := r.ListOrders(ctx)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("order count changed: %d -> %d", len(before), len(after))
	}
	if after[0].Status != before[0].Status {
		t.Fatalf("status changed: %s -> %s", before[0].Status, after[0].Status)
	}
}

func TestBolt_UpdateOrderStatusKeepsOtherFields(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	o := testOrder("ORD-CCC222DDD", 7)
	if err := r.AddOrder(ctx, o); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}

	if err := r.UpdateOrderStatus(ctx, o.ID, model.OrderStatusProcessing); err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}

	got, err := r.GetOrder(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Status != model.OrderStatusProcessing {
		t.Fatalf("status = %s, want PROCESSING", got.Status)
	}
	if got.TotalPayable != o.TotalPayable || !got.CreatedAt.Equal(o.CreatedAt) {
		t.Fatalf("other fields changed: %+v", got)
	}
}

func TestBolt_ListOrdersByUserPreservesOrder(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	// Чередуем заказы двух пользователей
	seq := []struct {
		id     string
		userID int64
	}{
		{"ORD-000000001", 1},
		{"ORD-000000002", 2},
		{"ORD-000000003", 1},
		{"ORD-000000004", 2},
		{"ORD-000000005", 1},
	}
	for _, s := range seq {
		if err := r.AddOrder(ctx, testOrder(s.id, s.userID)); err != nil {
			t.Fatalf("AddOrder %s: %v", s.id, err)
		}
	}

	all, err := r.ListOrders(ctx)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(all) != len(seq) {
		t.Fatalf("got %d orders, want %d", len(all), len(seq))
	}

	mine, err := r.ListOrdersByUser(ctx, 1)
	if err != nil {
		t.Fatalf("ListOrdersByUser: %v", err)
	}

	var wantIDs []string
	for _, o := range all {
		if o.UserID == 1 {
			wantIDs = append(wantIDs, o.ID)
		}
	}
	if len(mine) != len(wantIDs) {
		t.Fatalf("got %d orders for user 1, want %d", len(mine), len(wantIDs))
	}
	for i, id := range wantIDs {
		if mine[i].ID != id {
			t.Fatalf("mine[%d].ID = %s, want %s", i, mine[i].ID, id)
		}
	}
}

func TestBolt_AddOrderDuplicateID(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	if err := r.AddOrder(ctx, testOrder("ORD-SAME00000", 1)); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}
	err := r.AddOrder(ctx, testOrder("ORD-SAME00000", 2))
	if !errors.Is(err, ErrOrderExists) {
		t.Fatalf("expected ErrOrderExists, got %v", err)
	}
}

func TestBolt_UsersByPhone(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	id, err := r.CreateUser(ctx, "Player One", "01700000000", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if _, err := r.CreateUser(ctx, "Imposter", "01700000000", model.RoleUser); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	byPhone, err := r.GetUserByPhone(ctx, "01700000000")
	if err != nil {
		t.Fatalf("GetUserByPhone: %v", err)
	}
	if byPhone.ID != id || byPhone.Name != "Player One" {
		t.Fatalf("unexpected user: %+v", byPhone)
	}

	if _, err := r.GetUserByPhone(ctx, "01999999999"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	byID, err := r.GetUserByID(ctx, id)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if byID.Phone != "01700000000" {
		t.Fatalf("unexpected phone: %s", byID.Phone)
	}
}

func TestBolt_DataSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reopen.db")
	ctx := context.Background()

	r, err := NewBoltRepository(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := r.AddPackage(ctx, testPackage("uid-25", 22)); err != nil {
		t.Fatalf("AddPackage: %v", err)
	}
	if err := r.AddOrder(ctx, testOrder("ORD-PERSIST01", 1)); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewBoltRepository(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.GetPackage(ctx, "uid-25"); err != nil {
		t.Fatalf("GetPackage after reopen: %v", err)
	}
	o, err := reopened.GetOrder(ctx, "ORD-PERSIST01")
	if err != nil {
		t.Fatalf("GetOrder after reopen: %v", err)
	}
	if o.PlayerAccount == nil || o.PlayerAccount.UID != "123456789" {
		t.Fatalf("order account lost on reopen: %+v", o)
	}
}
