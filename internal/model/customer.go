package model

import "time"

// Customer is the identity of a guest, keyed by email.  A customer is
// created on first booking and updated in place on repeat bookings by
// the same email; many reservations may reference one customer.
//
// Fields:
//  ID        – primary key identifier.
//  FullName  – guest's display name.
//  Email     – unique, stored lowercased.
//  Phone     – contact phone number.
//  Company   – optional company name for business stays.
type Customer struct {
	ID        uint64    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
