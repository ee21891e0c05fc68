package model

// Database groups tables and belongs to one tenant.
type Database struct {
	ID       int64  `json:"id"`
	TenantID int64  `json:"tenantId"`
	Name     string `json:"name"`
}

// Table is a table definition, optionally loaded with its rows.
type Table struct {
	ID         int64    `json:"id"`
	DatabaseID int64    `json:"databaseId"`
	Name       string   `json:"name"`
	Columns    []Column `json:"columns"`
	Rows       []Row    `json:"rows,omitempty"`
}
