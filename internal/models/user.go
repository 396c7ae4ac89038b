package models

// User represents a participant known to the API.
// Users are created and owned by the API; the client only lists them and
// references them by ID.
type User struct {
	// ID is the API-assigned identifier.
	ID int64 `json:"id"`

	// Name is the display name shown in selectors and tables.
	Name string `json:"name"`
}

// UserCreate is the body of "create user".
type UserCreate struct {
	Name string `json:"name"`
}
