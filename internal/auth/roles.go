package auth

import "trip-expenses/internal/models"

// Permission is a single capability a role may grant.
type Permission int

const (
	// SubmitExpenses allows filing expenses against any trip.
	SubmitExpenses Permission = iota
	// ViewAllExpenses widens trip totals and listings from the viewer's own
	// expenses to every user's.
	ViewAllExpenses
	// ManageTrips allows creating trips and using the admin trip views.
	ManageTrips
	// ManageUsers allows creating accounts.
	ManageUsers
	// ReviewExpenses allows changing an expense's status.
	ReviewExpenses
)

var rolePermissions = map[models.Role]map[Permission]bool{
	models.RoleAdmin: {
		SubmitExpenses:  true,
		ViewAllExpenses: true,
		ManageTrips:     true,
		ManageUsers:     true,
		ReviewExpenses:  true,
	},
	models.RoleUser: {
		SubmitExpenses: true,
	},
}

// Authorizer answers capability checks for the current principal.
type Authorizer interface {
	Can(p Permission) bool
}

// RoleCan reports whether role grants p. Unknown roles grant nothing.
func RoleCan(role models.Role, p Permission) bool {
	return rolePermissions[role][p]
}
