package schema

// Tabler lets a model override its mapped table name
type Tabler interface {
	TableName() string
}
