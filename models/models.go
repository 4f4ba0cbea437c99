package models

import (
	"strings"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusDelivered OrderStatus = "delivered"
)

type DesignType string

const (
	DesignTypeImage DesignType = "image"
	DesignTypeVideo DesignType = "video"
)

// Owner is a registered tailoring shop. Email is the natural key and is
// always stored normalized.
type Owner struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Place    string `json:"place"`
	Password string `json:"pass"`
}

// OwnerProfile is the public view of an Owner.
type OwnerProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Place string `json:"place"`
}

func (o Owner) Profile() OwnerProfile {
	return OwnerProfile{
		Name:  o.Name,
		Email: o.Email,
		Phone: o.Phone,
		Place: o.Place,
	}
}

type Order struct {
	ID            string      `json:"id"`
	CustomerName  string      `json:"name"`
	CustomerPhone string      `json:"phone"`
	Address       string      `json:"address"`
	GarmentType   string      `json:"dress"`
	Size          string      `json:"size"`
	Quantity      int         `json:"qty"`
	DeliveryDate  string      `json:"delivery"`
	Status        OrderStatus `json:"status"`
	PlacedAt      string      `json:"placedAt"`
	OwnerEmail    string      `json:"owner"`
}

type Design struct {
	ID         string     `json:"id"`
	OwnerEmail string     `json:"owner"`
	Type       DesignType `json:"type"`
	Data       string     `json:"data"`
	Title      string     `json:"title"`
	UploadedAt string     `json:"uploadedAt"`
}

// OwnerCard is what the owners listing shows for one shop.
type OwnerCard struct {
	Owner       OwnerProfile    `json:"owner"`
	Rating      RatingAggregate `json:"rating"`
	DesignCount int             `json:"designCount"`
	Previews    []Design        `json:"previews"`
}

// NormalizeEmail trims and lowercases an email so it can be used as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// OwnerIndex maps normalized emails to owners. Rebuild it from every load.
type OwnerIndex map[string]Owner

func IndexOwners(owners []Owner) OwnerIndex {
	idx := make(OwnerIndex, len(owners))
	for _, o := range owners {
		idx[NormalizeEmail(o.Email)] = o
	}
	return idx
}

func (idx OwnerIndex) Lookup(email string) (Owner, bool) {
	o, ok := idx[NormalizeEmail(email)]
	return o, ok
}
