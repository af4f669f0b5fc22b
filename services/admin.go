package services

import (
	"fmt"
	"slices"
)

// Admin is proof that the caller was checked against the admin list. Only
// an Authorizer can produce a usable value.
type Admin struct {
	id int64
}

func (a Admin) ID() int64 {
	return a.id
}

func (a Admin) valid() bool {
	return a.id != 0
}

func requireAdmin(a Admin) error {
	if !a.valid() {
		return ErrUnauthorized
	}
	return nil
}

// Authorizer mints Admin capabilities for the configured operator ids.
type Authorizer struct {
	admins map[int64]struct{}
}

func NewAuthorizer(adminIDs []int64) *Authorizer {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		if id != 0 {
			admins[id] = struct{}{}
		}
	}
	return &Authorizer{admins: admins}
}

func (a *Authorizer) IsAdmin(userID int64) bool {
	_, ok := a.admins[userID]
	return ok
}

func (a *Authorizer) Admin(userID int64) (Admin, error) {
	if !a.IsAdmin(userID) {
		return Admin{}, fmt.Errorf("%w: user %d", ErrUnauthorized, userID)
	}
	return Admin{id: userID}, nil
}

// IDs lists the operators, sorted, for fan-out of operator notifications.
func (a *Authorizer) IDs() []int64 {
	ids := make([]int64, 0, len(a.admins))
	for id := range a.admins {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
