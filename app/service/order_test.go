package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/types"

	"github.com/DATA-DOG/go-sqlmock"
)

var (
	orderColumns     = []string{"id", "user_id", "total_amount", "status", "created_at", "updated_at"}
	orderItemColumns = []string{"id", "order_id", "product_id", "quantity", "price_at_purchase", "product_name", "product_description"}
)

const (
	listOrdersQuery        = `(?s)SELECT id, user_id, total_amount, status, created_at, updated_at\s+FROM orders WHERE user_id = \?\s+ORDER BY created_at DESC, id DESC`
	findOrderForUserQuery  = `(?s)SELECT id, user_id, total_amount, status, created_at, updated_at\s+FROM orders WHERE id = \? AND user_id = \?`
	findOrderQuery         = `(?s)SELECT id, user_id, total_amount, status, created_at, updated_at\s+FROM orders WHERE id = \?`
	listOrderItemsQuery    = `(?s)SELECT id, order_id, product_id, quantity, price_at_purchase, product_name, product_description\s+FROM order_items WHERE order_id = \?\s+ORDER BY id`
	updateOrderStatusQuery = `UPDATE orders SET status = \?, updated_at = \? WHERE id = \?`
)

func TestOrderService_List(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	mock.ExpectQuery(listOrdersQuery).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(orderColumns).
			AddRow(uint64(31), uint64(1), "12.50", entity.OrderStatusPaid, testNow, testNow).
			AddRow(uint64(30), uint64(1), "25.00", entity.OrderStatusPaid, testNow, testNow))

	orders, err := svc.orders.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != 31 {
		t.Fatalf("expected newest order 31 first, got %+v", orders)
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrderService_Get_KeepsSnapshotOfDeletedProduct(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	mock.ExpectQuery(findOrderForUserQuery).
		WithArgs(uint64(30), uint64(1)).
		WillReturnRows(sqlmock.NewRows(orderColumns).
			AddRow(uint64(30), uint64(1), "25.00", entity.OrderStatusPaid, testNow, testNow))
	mock.ExpectQuery(listOrderItemsQuery).
		WithArgs(uint64(30)).
		WillReturnRows(sqlmock.NewRows(orderItemColumns).
			AddRow(uint64(1), uint64(30), int64(5), 2, "10.00", "A", "Desc A").
			AddRow(uint64(2), uint64(30), nil, 1, "5.00", "B", nil))

	order, err := svc.orders.Get(context.Background(), 1, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}
	if !order.Items[0].ProductID.Valid || order.Items[1].ProductID.Valid {
		t.Fatalf("unexpected product ids %+v / %+v", order.Items[0].ProductID, order.Items[1].ProductID)
	}
	if order.Items[1].ProductName != "B" {
		t.Fatalf("expected snapshot name B, got %q", order.Items[1].ProductName)
	}

	res := types.NewOrderResponse(order)
	if res.Items[0].ProductID == nil || res.Items[1].ProductID != nil {
		t.Fatalf("expected product_id only on the first item, got %+v", res.Items)
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrderService_Get_OtherUsersOrder(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	mock.ExpectQuery(findOrderForUserQuery).
		WithArgs(uint64(30), uint64(2)).
		WillReturnRows(sqlmock.NewRows(orderColumns))

	_, err := svc.orders.Get(context.Background(), 2, 30)
	if !errors.Is(err, service.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrderService_UpdateStatus(t *testing.T) {
	svc, mock, cleanup := newServiceWithMock(t)
	defer cleanup()

	_, err := svc.orders.UpdateStatus(context.Background(), &types.UpdateOrderStatusRequest{OrderID: 30, Status: "shipped"})
	if !errors.Is(err, service.ErrInvalidOrderStatus) {
		t.Fatalf("expected ErrInvalidOrderStatus, got %v", err)
	}

	mock.ExpectQuery(findOrderQuery).
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows(orderColumns))

	_, err = svc.orders.UpdateStatus(context.Background(), &types.UpdateOrderStatusRequest{OrderID: 99, Status: entity.OrderStatusCancelled})
	if !errors.Is(err, service.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	mock.ExpectQuery(findOrderQuery).
		WithArgs(uint64(30)).
		WillReturnRows(sqlmock.NewRows(orderColumns).
			AddRow(uint64(30), uint64(1), "25.00", entity.OrderStatusPaid, testNow, testNow))
	mock.ExpectExec(updateOrderStatusQuery).
		WithArgs(entity.OrderStatusCancelled, testNow, uint64(30)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	order, err := svc.orders.UpdateStatus(context.Background(), &types.UpdateOrderStatusRequest{OrderID: 30, Status: entity.OrderStatusCancelled})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != entity.OrderStatusCancelled {
		t.Fatalf("expected status cancelled, got %q", order.Status)
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
