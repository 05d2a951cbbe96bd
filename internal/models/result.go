package models

// PreviewRequest is the body of the backend SQL preview endpoint
type PreviewRequest struct {
	SQLQuery string `json:"sql_query"`
	Limit    int    `json:"limit"`
}

// QueryResult is the tabular result of a preview run. Rows are positional
// arrays aligned with Columns.
type QueryResult struct {
	Columns         []string        `json:"columns"`
	Data            [][]interface{} `json:"data"`
	TotalRows       int             `json:"total_rows"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
	Success         bool            `json:"success"`
	Message         string          `json:"message,omitempty"`
}

// ReportPreviewResponse is the name the backend uses for the preview payload
type ReportPreviewResponse = QueryResult

// ColumnIndex returns the position of name in Columns, or -1
func (r *QueryResult) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column resolves a configured column name with a positional fallback.
// An empty or unknown name falls back to Columns[pos] when it exists.
func (r *QueryResult) Column(name string, pos int) int {
	if name != "" {
		if idx := r.ColumnIndex(name); idx >= 0 {
			return idx
		}
	}
	if pos >= 0 && pos < len(r.Columns) {
		return pos
	}
	return -1
}

// RowMap converts a positional row into a column-keyed map
func (r *QueryResult) RowMap(i int) map[string]interface{} {
	row := make(map[string]interface{}, len(r.Columns))
	if i < 0 || i >= len(r.Data) {
		return row
	}
	for j, c := range r.Columns {
		if j < len(r.Data[i]) {
			row[c] = r.Data[i][j]
		}
	}
	return row
}

// Empty reports whether the result carries no rows
func (r *QueryResult) Empty() bool {
	return r == nil || len(r.Data) == 0
}
