package api

// ConnectRequest is the request body for POST /api/db/connect.
type ConnectRequest struct {
	TenantID string `json:"tenant_id"`
}

// PreviewRequest is the request body for POST /api/db/preview.
type PreviewRequest struct {
	TenantID   string       `json:"tenant_id"`
	TableName  string       `json:"table_name"`
	PageNumber int          `json:"page_number"`
	Where      *WhereClause `json:"where_clause,omitempty"`
	OrderBy    string       `json:"order_by,omitempty"`
}

// WhereClause is a parameter-bound filter fragment for table previews.
type WhereClause struct {
	Statement string `json:"statement"`
	Values    []any  `json:"values"`
}

// QueryRequest is the request body for POST /api/db/query.
type QueryRequest struct {
	TenantID string `json:"tenant_id"`
	SQL      string `json:"sql"`
}

// AskRequest is the request body for POST /api/db/ask.
type AskRequest struct {
	TenantID  string `json:"tenant_id"`
	TableName string `json:"table_name"`
	Question  string `json:"question"`
}
