package store

import (
	"gorm.io/gorm"
)

// ByIDs limits a query to the given primary keys.
func ByIDs(ids []int64) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id IN ?", ids)
	}
}

// ProviderAccountsOfProvider limits provider accounts to one provider.
func ProviderAccountsOfProvider(providerID int64) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("provider_id = ?", providerID)
	}
}

// AccountsOfProviderAccount limits accounts to one provider account.
func AccountsOfProviderAccount(providerAccountID int64) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("provider_account_id = ?", providerAccountID)
	}
}

// TransactionsOfAccount limits transactions to one account.
func TransactionsOfAccount(accountID int64) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("account_id = ?", accountID)
	}
}

// TransactionsBetween limits transactions to an inclusive date range and,
// when accountIDs is not empty, to those accounts. Dates use
// models.TransactionDateFormat.
func TransactionsBetween(from, to string, accountIDs []int64) Scope {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("transaction_date >= ? AND transaction_date <= ?", from, to)
		if len(accountIDs) > 0 {
			db = db.Where("account_id IN ?", accountIDs)
		}
		return db
	}
}

// UnreadMessages limits messages to those not yet read.
func UnreadMessages() Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("read = ?", false)
	}
}

// MessagesFilter limits messages to any of types and, if read is set, to that
// read state.
func MessagesFilter(types []string, read *bool) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if len(types) > 0 {
			cond := db.Session(&gorm.Session{NewDB: true})
			for i, typ := range types {
				like := `%"` + typ + `"%`
				if i == 0 {
					cond = cond.Where("message_types LIKE ?", like)
				} else {
					cond = cond.Or("message_types LIKE ?", like)
				}
			}
			db = db.Where(cond)
		}
		if read != nil {
			db = db.Where("read = ?", *read)
		}
		return db
	}
}
