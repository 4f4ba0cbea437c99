package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"tailorfinder/models"
	"tailorfinder/session"
)

type OrderInput struct {
	CustomerName    string `json:"name" validate:"min=2"`
	CustomerPhone   string `json:"phone" validate:"phone10"`
	CustomerAddress string `json:"address" validate:"required"`
	GarmentType     string `json:"dress" validate:"required"`
	Size            string `json:"size" validate:"required"`
	Quantity        int    `json:"qty" validate:"min=1"`
	DeliveryDate    string `json:"delivery" validate:"required"`
	OwnerEmail      string `json:"owner" validate:"required"`
}

// PlaceOrder validates every field, including that the owner exists, and
// reports all failures together. Accepted orders go to the front of the list.
func (s *Service) PlaceOrder(ctx context.Context, in OrderInput) (models.Order, error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.CustomerAddress = strings.TrimSpace(in.CustomerAddress)
	in.GarmentType = strings.TrimSpace(in.GarmentType)
	in.Size = strings.TrimSpace(in.Size)
	in.DeliveryDate = strings.TrimSpace(in.DeliveryDate)
	in.OwnerEmail = models.NormalizeEmail(in.OwnerEmail)

	s.mu.Lock()
	defer s.mu.Unlock()

	verr := s.check(in)
	if in.OwnerEmail != "" {
		_, ok, err := s.lookupOwner(ctx, in.OwnerEmail)
		if err != nil {
			return models.Order{}, err
		}
		if !ok {
			verr = verr.add("owner", "not_found")
		}
	}
	if verr != nil {
		return models.Order{}, verr
	}

	id, err := s.newOrderID()
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to generate order id: %w", err)
	}
	order := models.Order{
		ID:            id,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		Address:       in.CustomerAddress,
		GarmentType:   in.GarmentType,
		Size:          in.Size,
		Quantity:      in.Quantity,
		DeliveryDate:  in.DeliveryDate,
		Status:        models.OrderStatusPending,
		PlacedAt:      s.timestamp(),
		OwnerEmail:    in.OwnerEmail,
	}

	orders, err := s.repo.OrdersForUpdate(ctx)
	if err != nil {
		return models.Order{}, err
	}
	orders = append([]models.Order{order}, orders...)
	if err := s.repo.SaveOrders(ctx, orders); err != nil {
		return models.Order{}, err
	}
	s.log.WithField("order", order.ID).WithField("owner", order.OwnerEmail).Info("order placed")
	return order, nil
}

// SetOrderStatus only touches an order that matches both id and the session
// owner; anything else is ignored and reported as false.
func (s *Service) SetOrderStatus(ctx context.Context, sess session.Session, orderID string, delivered bool) (bool, error) {
	email := models.NormalizeEmail(sess.OwnerEmail)

	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.repo.OrdersForUpdate(ctx)
	if err != nil {
		return false, err
	}
	i := slices.IndexFunc(orders, func(o models.Order) bool {
		return o.ID == orderID && sameOwner(o.OwnerEmail, email)
	})
	if i < 0 {
		return false, nil
	}
	orders[i].Status = models.OrderStatusPending
	if delivered {
		orders[i].Status = models.OrderStatusDelivered
	}
	if err := s.repo.SaveOrders(ctx, orders); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteOrder uses the same id-and-owner match as SetOrderStatus.
func (s *Service) DeleteOrder(ctx context.Context, sess session.Session, orderID string) (bool, error) {
	email := models.NormalizeEmail(sess.OwnerEmail)
	n, err := s.removeOrders(ctx, func(o models.Order) bool {
		return o.ID == orderID && sameOwner(o.OwnerEmail, email)
	})
	return n > 0, err
}

// ClearOrders removes every order of the session owner.
func (s *Service) ClearOrders(ctx context.Context, sess session.Session) (int, error) {
	email := models.NormalizeEmail(sess.OwnerEmail)
	return s.removeOrders(ctx, func(o models.Order) bool {
		return sameOwner(o.OwnerEmail, email)
	})
}

func (s *Service) removeOrders(ctx context.Context, match func(models.Order) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.repo.OrdersForUpdate(ctx)
	if err != nil {
		return 0, err
	}
	before := len(orders)
	orders = slices.DeleteFunc(orders, match)
	removed := before - len(orders)
	if removed == 0 {
		return 0, nil
	}
	if err := s.repo.SaveOrders(ctx, orders); err != nil {
		return 0, err
	}
	return removed, nil
}

// ListOrdersForOwner returns the owner's orders, newest first.
func (s *Service) ListOrdersForOwner(ctx context.Context, email string) []models.Order {
	return s.SearchOrders(ctx, email, "")
}

// SearchOrders filters the owner's orders on customer name, phone, address
// and garment type, ignoring case.
func (s *Service) SearchOrders(ctx context.Context, email, query string) []models.Order {
	email = models.NormalizeEmail(email)
	q := strings.ToLower(strings.TrimSpace(query))

	var matched []models.Order
	for _, o := range s.repo.Orders(ctx) {
		if !sameOwner(o.OwnerEmail, email) {
			continue
		}
		if q == "" || containsFold(q, o.CustomerName, o.CustomerPhone, o.Address, o.GarmentType) {
			matched = append(matched, o)
		}
	}
	if matched == nil {
		return []models.Order{}
	}
	return matched
}
