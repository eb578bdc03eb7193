package domain

// User roles. Every registered user lands in the base role; admin is
// reserved for management tooling and never assigned by the public API.
const (
	RoleBase  = "base"
	RoleAdmin = "admin"
)
