package models

// Entity is a cached server record keyed by its server-assigned ID.
type Entity interface {
	TableName() string
	PrimaryKey() int64
}

// All lists every cached model, in the order tables are created.
func All() []interface{} {
	return []interface{}{
		&Provider{},
		&ProviderAccount{},
		&Account{},
		&Transaction{},
		&Merchant{},
		&TransactionCategory{},
		&Message{},
		&User{},
	}
}

// IDs extracts primary keys in slice order.
func IDs[T Entity](rows []T) []int64 {
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.PrimaryKey()
	}
	return ids
}
