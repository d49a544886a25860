package domain

import "time"

// Role is a named capability bundle. Permissions are attached through a
// many-to-many join and loaded on demand; users reference a role by id.
type Role struct {
	ID          int64
	Name        string // unique
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission is a named atomic capability, e.g. "manage_roles".
type Permission struct {
	ID          int64
	Name        string // unique
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
